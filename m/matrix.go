package m

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const initRange = 0.5

func randomArray(size int, src rand.Source) []float64 {
	dist := distuv.Uniform{
		Min: -initRange,
		Max: initRange,
		Src: src,
	}

	data := make([]float64, size)
	for i := 0; i < size; i++ {
		data[i] = dist.Rand()
	}
	return data
}

// GetColumn copies column j of matrix into a new slice.
func GetColumn(matrix mat.Matrix, j int) []float64 {
	rows, _ := matrix.Dims()
	column := make([]float64, rows)
	mat.Col(column, j, matrix)
	return column
}

// MatrixToVector flattens matrix row by row.
func MatrixToVector(matrix mat.Matrix) []float64 {
	r, c := matrix.Dims()
	vector := make([]float64, r*c)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			vector[i*c+j] = matrix.At(i, j)
		}
	}

	return vector
}
