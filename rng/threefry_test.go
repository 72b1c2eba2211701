package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Known-answer vectors for the stream layout used by the transport kernel:
// key block (pid, masterKey, 0, 0), counter block (counter, 0, 0, 0).
func TestThreefry4x64KnownAnswers(t *testing.T) {
	tests := []struct {
		name              string
		pid, master, ctr  uint64
		want              [4]uint64
	}{
		{
			name: "zero stream",
			want: [4]uint64{0x09218ebde6c85537, 0x55941f5266d86105, 0x4bd25e16282434dc, 0xee29ec846bd2e40b},
		},
		{
			name: "pid 1",
			pid:  1,
			want: [4]uint64{0x08b19eef731cec06, 0xc041e4dfd6d4e684, 0x31c8b75718632571, 0x8b96a7ec06438532},
		},
		{
			name:   "master key 1",
			master: 1,
			want:   [4]uint64{0x87fd7322c5039592, 0xe55897dbfb60fe0b, 0xad7ea89552e54b52, 0x8c135a917c839b73},
		},
		{
			name: "42s", pid: 42, master: 42, ctr: 42,
			want: [4]uint64{0x547357af70dcd659, 0xbc0cd4fbb475e45e, 0xdcdf3169cea25527, 0x4ad397ed69c21e7c},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Threefry4x64(
				[4]uint64{tt.pid, tt.master, 0, 0},
				[4]uint64{tt.ctr, 0, 0, 0},
			)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestThreefry2x64KnownAnswers(t *testing.T) {
	tests := []struct {
		name             string
		pid, master, ctr uint64
		want             [2]uint64
	}{
		{
			name: "zero stream",
			want: [2]uint64{0xc2b6e3a8c2c69865, 0x6f81ed42f350084d},
		},
		{
			name: "pid 1", pid: 1,
			want: [2]uint64{0xafba27f1657a7b42, 0xaccfcc9327531fbd},
		},
		{
			name: "master key 1", master: 1,
			want: [2]uint64{0x3386564ed9e958da, 0x5ec3797e073ce882},
		},
		{
			name: "42s", pid: 42, master: 42, ctr: 42,
			want: [2]uint64{0x7f71ceb3b2c3ae25, 0x606ef1d4f2964361},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Threefry2x64([2]uint64{tt.pid, tt.master}, [2]uint64{tt.ctr, 0})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUniform4IsPure(t *testing.T) {
	a := Uniform4(7, 3, 11)
	b := Uniform4(7, 3, 11)
	require.Equal(t, a, b)

	// Distinct counters must give distinct draws.
	c := Uniform4(7, 3, 12)
	assert.NotEqual(t, a, c)
}

func TestUniformOpenInterval(t *testing.T) {
	// The extreme raw words must map strictly inside (0, 1).
	assert.Greater(t, ToUnit(0), 0.0)
	assert.Less(t, ToUnit(^uint64(0)), 1.0)

	for pid := uint64(0); pid < 64; pid++ {
		for ctr := uint64(0); ctr < 16; ctr++ {
			for _, u := range Uniform4(pid, 99, ctr) {
				require.Greater(t, u, 0.0)
				require.Less(t, u, 1.0)
			}
			for _, u := range Uniform2(pid, 99, ctr) {
				require.Greater(t, u, 0.0)
				require.Less(t, u, 1.0)
			}
		}
	}
}

func TestStreamsAreDisjointAcrossKeys(t *testing.T) {
	// Neighbouring particle keys and master keys must decorrelate the
	// first draw completely, not just perturb it.
	base := Uniform4(0, 0, 0)
	for pid := uint64(1); pid < 32; pid++ {
		got := Uniform4(pid, 0, 0)
		assert.NotEqual(t, base, got, "pid %d collides with pid 0", pid)
	}
	for mk := uint64(1); mk < 32; mk++ {
		got := Uniform4(0, mk, 0)
		assert.NotEqual(t, base, got, "master key %d collides with key 0", mk)
	}
}
