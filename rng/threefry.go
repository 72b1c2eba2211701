// Package rng provides the counter-based deterministic random-number
// generator used by the transport kernel. Every particle derives its own
// stream from (particle key, master key, counter), so draws are independent
// of worker scheduling and runs reproduce bit for bit.
package rng

// skeinParity is the key-schedule parity constant shared by all Threefish
// derived ciphers.
const skeinParity = 0x1BD11BDAA9FC1A22

// Rotation schedules for the 4x64 and 2x64 variants, repeating every eight
// rounds.
var (
	rot4 = [8][2]uint{
		{14, 16}, {52, 57}, {23, 40}, {5, 37},
		{25, 33}, {46, 12}, {58, 22}, {32, 32},
	}
	rot2 = [8]uint{16, 42, 12, 31, 16, 32, 24, 21}
)

func rotl(x uint64, r uint) uint64 {
	return x<<r | x>>(64-r)
}

// Threefry4x64 applies the 20-round threefry-4x64 block cipher to the
// counter block under the given key block.
func Threefry4x64(key, ctr [4]uint64) [4]uint64 {
	ks := [5]uint64{
		key[0], key[1], key[2], key[3],
		skeinParity ^ key[0] ^ key[1] ^ key[2] ^ key[3],
	}

	x := ctr
	x[0] += ks[0]
	x[1] += ks[1]
	x[2] += ks[2]
	x[3] += ks[3]

	for d := 0; d < 20; d++ {
		r := rot4[d%8]
		if d%2 == 0 {
			x[0] += x[1]
			x[1] = rotl(x[1], r[0]) ^ x[0]
			x[2] += x[3]
			x[3] = rotl(x[3], r[1]) ^ x[2]
		} else {
			x[0] += x[3]
			x[3] = rotl(x[3], r[0]) ^ x[0]
			x[2] += x[1]
			x[1] = rotl(x[1], r[1]) ^ x[2]
		}
		if d%4 == 3 {
			q := uint64(d/4) + 1
			x[0] += ks[(q+0)%5]
			x[1] += ks[(q+1)%5]
			x[2] += ks[(q+2)%5]
			x[3] += ks[(q+3)%5] + q
		}
	}

	return x
}

// Threefry2x64 is the two-word analogue, used where only two reals are
// needed per draw.
func Threefry2x64(key, ctr [2]uint64) [2]uint64 {
	ks := [3]uint64{key[0], key[1], skeinParity ^ key[0] ^ key[1]}

	x := ctr
	x[0] += ks[0]
	x[1] += ks[1]

	for d := 0; d < 20; d++ {
		x[0] += x[1]
		x[1] = rotl(x[1], rot2[d%8]) ^ x[0]
		if d%4 == 3 {
			q := uint64(d/4) + 1
			x[0] += ks[q%3]
			x[1] += ks[(q+1)%3] + q
		}
	}

	return x
}

// Word-to-real mapping u*2^-64 + 2^-65 keeps the unit interval open at both
// ends, so log and inverse draws never see 0 or 1.
const (
	twoNeg64 = 5.421010862427522170037264e-20
	twoNeg65 = 2.710505431213761085018632e-20

	// belowOne is the largest float64 less than 1.
	belowOne = 1.0 - 1.0/(1<<53)
)

// ToUnit maps a raw 64-bit word onto the open interval (0, 1). Words near
// the top of the range round to 1 in float64 and are clamped just below it.
func ToUnit(u uint64) float64 {
	r := float64(u)*twoNeg64 + twoNeg65
	if r >= 1.0 {
		return belowOne
	}
	return r
}

// Uniform4 returns four reals in (0, 1) for the stream identified by
// (particleKey, masterKey) at the given counter. The key block is
// (particleKey, masterKey, 0, 0) and the counter block (counter, 0, 0, 0).
func Uniform4(particleKey, masterKey, counter uint64) [4]float64 {
	w := Threefry4x64(
		[4]uint64{particleKey, masterKey, 0, 0},
		[4]uint64{counter, 0, 0, 0},
	)
	return [4]float64{ToUnit(w[0]), ToUnit(w[1]), ToUnit(w[2]), ToUnit(w[3])}
}

// Uniform2 returns two reals in (0, 1) using the 2x64 variant with key
// (particleKey, masterKey) and counter block (counter, 0).
func Uniform2(particleKey, masterKey, counter uint64) [2]float64 {
	w := Threefry2x64(
		[2]uint64{particleKey, masterKey},
		[2]uint64{counter, 0},
	)
	return [2]float64{ToUnit(w[0]), ToUnit(w[1])}
}
