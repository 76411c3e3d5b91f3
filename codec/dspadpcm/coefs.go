/*
NAME
  coefs.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dspadpcm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// frameSize is the number of samples correlated as one analysis frame.
const frameSize = 0x3800

// CorrelateCoefs derives the 8 predictor coefficient pairs that best fit
// source, using a windowed autocorrelation analysis followed by iterative
// cluster refinement. This mirrors the classic GC-DSP coefficient search:
// each 14-sample frame contributes a normalized linear-prediction record,
// and the 8 coefficient sets are repeatedly split and re-fitted to the
// records nearest each.
func CorrelateCoefs(source []int16) CoefTable {
	var histBuf [28]int16
	var records [][3]float64

	pos := 0
	for pos < len(source) {
		frameSamples := len(source) - pos
		if frameSamples > frameSize {
			frameSamples = frameSize
		}
		frame := source[pos : pos+frameSamples]
		pos += frameSamples

		i := 0
		for i < len(frame) {
			copy(histBuf[0:14], histBuf[14:28])
			for z := 0; z < 14; z++ {
				if i < len(frame) {
					histBuf[14+z] = frame[i]
				} else {
					histBuf[14+z] = 0
				}
				i++
			}

			var window [16]int16
			copy(window[:], histBuf[12:28])

			vec1 := innerProductMerge(&window)
			if math.Abs(vec1[0]) > 10 {
				mtx := outerProductMerge(&window)
				sol, singular := solveNormalEquations(mtx, vec1)
				if !singular {
					if !quadraticMerge(&sol) {
						var out [3]float64
						finishRecord(&sol, &out)
						records = append(records, out)
					}
				}
			}
		}
	}

	var vecBest [8][3]float64
	var vec1 [3]float64
	vec1[0] = 1
	for i := range records {
		var out [3]float64
		matrixFilter(&records[i], &out)
		vec1[1] += out[1]
		vec1[2] += out[2]
	}
	if len(records) > 0 {
		vec1[1] /= float64(len(records))
		vec1[2] /= float64(len(records))
	}
	mergeFinishRecord(&vec1, &vecBest[0])

	exp := 1
	for w := 0; w < 3; w++ {
		vec2 := [3]float64{0, -1, 0}
		for i := 0; i < exp; i++ {
			for y := 0; y < 3; y++ {
				vecBest[exp+i][y] = 0.01*vec2[y] + vecBest[i][y]
			}
		}
		exp = 1 << (w + 1)
		filterRecords(&vecBest, exp, records)
	}

	var out CoefTable
	for z := 0; z < 8; z++ {
		out[z][0] = toCoef(-vecBest[z][1] * 2048)
		out[z][1] = toCoef(-vecBest[z][2] * 2048)
	}
	return out
}

func toCoef(d float64) int16 {
	switch {
	case d > 32767:
		return 32767
	case d < -32768:
		return -32768
	default:
		return int16(math.Round(d))
	}
}

// innerProductMerge computes the negated cross-correlation of the newest 14
// samples in pcmBuf against themselves shifted back 0, 1, and 2 samples. pcmBuf
// must hold 2 samples of history followed by the 14 samples being
// analyzed.
func innerProductMerge(pcmBuf *[16]int16) [3]float64 {
	var out [3]float64
	for i := 0; i <= 2; i++ {
		for x := 0; x < 14; x++ {
			out[i] -= float64(pcmBuf[x+2-i]) * float64(pcmBuf[x+2])
		}
	}
	return out
}

// outerProductMerge computes the 2x2 (embedded in a 3x3, row/col 0 unused)
// autocorrelation matrix for pcmBuf.
func outerProductMerge(pcmBuf *[16]int16) [3][3]float64 {
	var mtx [3][3]float64
	for x := 1; x <= 2; x++ {
		for y := 1; y <= 2; y++ {
			var sum float64
			for z := 0; z < 14; z++ {
				sum += float64(pcmBuf[z+2-x]) * float64(pcmBuf[z+2-y])
			}
			mtx[x][y] = sum
		}
	}
	return mtx
}

// solveNormalEquations solves the 2x2 linear system given by the lower
// right block of mtx against rhs, reporting singular=true if the system's
// condition number is too poor to trust the solution (mirroring the
// original range-analysis collapse check).
func solveNormalEquations(mtx [3][3]float64, rhs [3]float64) (sol [3]float64, singular bool) {
	a := mat.NewDense(2, 2, []float64{
		mtx[1][1], mtx[1][2],
		mtx[2][1], mtx[2][2],
	})

	var lu mat.LU
	lu.Factorize(a)
	cond := lu.Cond()
	if math.IsNaN(cond) || math.IsInf(cond, 1) || cond > 1e10 {
		return sol, true
	}

	b := mat.NewVecDense(2, []float64{rhs[1], rhs[2]})
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, b); err != nil {
		return sol, true
	}

	sol[0] = 0
	sol[1] = x.AtVec(0)
	sol[2] = x.AtVec(1)
	return sol, false
}

func quadraticMerge(v *[3]float64) bool {
	v2 := v[2]
	tmp := 1 - v2*v2
	if tmp == 0 {
		return true
	}
	v0 := (v[0] - v2*v2) / tmp
	v1 := (v[1] - v[1]*v2) / tmp
	v[0] = v0
	v[1] = v1
	return math.Abs(v1) > 1
}

func finishRecord(in *[3]float64, out *[3]float64) {
	for z := 1; z <= 2; z++ {
		if in[z] >= 1 {
			in[z] = 0.9999999999
		} else if in[z] <= -1 {
			in[z] = -0.9999999999
		}
	}
	out[0] = 1
	out[1] = in[2]*in[1] + in[1]
	out[2] = in[2]
}

func matrixFilter(src *[3]float64, dst *[3]float64) {
	var mtx [3][3]float64

	mtx[2][0] = 1
	for i := 1; i <= 2; i++ {
		mtx[2][i] = -src[i]
	}

	for i := 2; i >= 1; i-- {
		val := 1 - mtx[i][i]*mtx[i][i]
		for y := 1; y <= i; y++ {
			mtx[i-1][y] = (mtx[i][i]*mtx[i][y] + mtx[i][y]) / val
		}
	}

	dst[0] = 1
	for i := 1; i <= 2; i++ {
		dst[i] = 0
		for y := 1; y <= i; y++ {
			dst[i] += mtx[i][y] * dst[i-y]
		}
	}
}

func mergeFinishRecord(src *[3]float64, dst *[3]float64) {
	var tmp [3]float64
	val := src[0]

	dst[0] = 1
	for i := 1; i <= 2; i++ {
		var v2 float64
		for y := 1; y < i; y++ {
			v2 += dst[y] * src[i-y]
		}

		if val > 0 {
			dst[i] = -(v2 + src[i]) / val
		} else {
			dst[i] = 0
		}
		tmp[i] = dst[i]

		for y := 1; y < i; y++ {
			dst[y] += dst[i] * dst[i-y]
		}
		val *= 1 - dst[i]*dst[i]
	}

	finishRecord(&tmp, dst)
}

func contrastVectors(source1, source2 *[3]float64) float64 {
	val := (source2[2]*source2[1] - source2[1]) / (1 - source2[2]*source2[2])
	val1 := source1[0]*source1[0] + source1[1]*source1[1] + source1[2]*source1[2]
	val2 := source1[0]*source1[1] + source1[1]*source1[2]
	val3 := source1[0] * source1[2]
	return val1 + 2*val*val2 + 2*(-source2[1]*val-source2[2])*val3
}

func filterRecords(vecBest *[8][3]float64, exp int, records [][3]float64) {
	var bufferList [8][3]float64
	var buffer1 [8]int

	for pass := 0; pass < 2; pass++ {
		for i := range buffer1 {
			buffer1[i] = 0
		}
		for i := range bufferList {
			bufferList[i] = [3]float64{}
		}

		for ri := range records {
			record := &records[ri]
			index := 0
			value := 1.0e30
			for i := 0; i < exp; i++ {
				v := contrastVectors(&vecBest[i], record)
				if v < value {
					value = v
					index = i
				}
			}
			buffer1[index]++
			var buf2 [3]float64
			matrixFilter(record, &buf2)
			for k := 0; k < 3; k++ {
				bufferList[index][k] += buf2[k]
			}
		}

		for i := 0; i < exp; i++ {
			if buffer1[i] > 0 {
				for k := 0; k < 3; k++ {
					bufferList[i][k] /= float64(buffer1[i])
				}
			}
		}

		for i := 0; i < exp; i++ {
			mergeFinishRecord(&bufferList[i], &vecBest[i])
		}
	}
}
