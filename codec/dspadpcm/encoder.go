/*
NAME
  encoder.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dspadpcm

// EncodeFrame encodes one packet of up to PacketSamples samples using the
// coefficient set in coefs that yields the lowest reconstruction error.
//
// window holds 2 samples of predictor history in window[0:2] followed by up
// to PacketSamples new samples in window[2:2+sampleCount]. On return,
// window[2:2+sampleCount] is overwritten with the values the decoder would
// reconstruct from the returned packet bytes, so a caller encoding a stream
// of packets can feed window forward as rolling history.
func EncodeFrame(window *[16]int16, sampleCount int, coefs CoefTable) [PacketBytes]byte {
	var inSamples [NumCoefSets][16]int16
	var outSamples [NumCoefSets][PacketSamples]int64

	var scale [NumCoefSets]int
	var distAccum [NumCoefSets]float64

	for i := 0; i < NumCoefSets; i++ {
		inSamples[i][0] = window[0]
		inSamples[i][1] = window[1]

		var distance int64
		for s := 0; s < sampleCount; s++ {
			v1 := (int64(window[s])*int64(coefs[i][1]) + int64(window[s+1])*int64(coefs[i][0])) / 2048
			inSamples[i][s+2] = int16(v1)
			v2 := int64(window[s+2]) - v1
			v3 := clampInt64(v2, -32768, 32767)
			if abs64(v3) > abs64(distance) {
				distance = v3
			}
		}

		sc := 0
		for sc <= 12 && !(distance >= -8 && distance <= 7) {
			sc++
			distance /= 2
		}
		if sc <= 1 {
			sc = -1
		} else {
			sc -= 2
		}
		scale[i] = sc

		for {
			scale[i]++
			distAccum[i] = 0
			index := int64(0)

			for s := 0; s < sampleCount; s++ {
				v1 := int64(inSamples[i][s])*int64(coefs[i][1]) + int64(inSamples[i][s+1])*int64(coefs[i][0])
				v2 := ((int64(window[s+2]) << 11) - v1) / 2048
				var v3 int64
				if v2 > 0 {
					v3 = int64(float64(v2)/float64(int64(1)<<scale[i]) + 0.4999999)
				} else {
					v3 = int64(float64(v2)/float64(int64(1)<<scale[i]) - 0.4999999)
				}

				if v3 < -8 {
					over := -8 - v3
					if index < over {
						index = over
					}
					v3 = -8
				} else if v3 > 7 {
					over := v3 - 7
					if index < over {
						index = over
					}
					v3 = 7
				}
				outSamples[i][s] = v3

				v1 = (v1 + ((v3 * (int64(1) << scale[i])) << 11) + 1024) >> 11
				v2 = clampInt64(v1, -32768, 32767)
				inSamples[i][s+2] = int16(v2)
				d := float64(int64(window[s+2]) - v2)
				distAccum[i] += d * d
			}

			x := index + 8
			for x > 256 {
				scale[i]++
				if scale[i] >= 12 {
					scale[i] = 11
				}
				x >>= 1
			}

			if !(scale[i] < 12 && index > 1) {
				break
			}
		}
	}

	bestIndex := 0
	min := distAccum[0]
	for i := 1; i < NumCoefSets; i++ {
		if distAccum[i] < min {
			min = distAccum[i]
			bestIndex = i
		}
	}

	copy(window[2:2+sampleCount], inSamples[bestIndex][2:2+sampleCount])

	var out [PacketBytes]byte
	out[0] = byte((bestIndex << 4) | (scale[bestIndex] & 0xf))

	for s := sampleCount; s < PacketSamples; s++ {
		outSamples[bestIndex][s] = 0
	}
	for y := 0; y < 7; y++ {
		out[y+1] = byte(outSamples[bestIndex][y*2]<<4 | (outSamples[bestIndex][y*2+1] & 0xf))
	}

	return out
}

func clampInt64(v, lo, hi int64) int64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
