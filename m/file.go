package m

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type Line struct {
	Inputs  []float64
	Targets []float64
}
type Lines []Line

// XORLines returns the four XOR examples, always in the same order.
func XORLines() Lines {
	return Lines{
		{Inputs: []float64{0, 0}, Targets: []float64{0}},
		{Inputs: []float64{0, 1}, Targets: []float64{1}},
		{Inputs: []float64{1, 0}, Targets: []float64{1}},
		{Inputs: []float64{1, 1}, Targets: []float64{0}},
	}
}

// GetLines reads one example per line: inputNum inputs followed by outputNum
// targets, comma separated. Blank lines are skipped.
func GetLines(reader io.Reader, inputNum, outputNum int) (Lines, error) {
	scanner := bufio.NewScanner(reader)
	var lines Lines
	var lineNum int
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		splits := strings.Split(text, ",")
		if len(splits) != inputNum+outputNum {
			return lines, errInvalidLine{
				lineNum:  lineNum,
				splits:   len(splits),
				expected: inputNum + outputNum,
			}
		}
		inputs := make([]float64, inputNum)
		targets := make([]float64, outputNum)

		for i, split := range splits {
			num, err := strconv.ParseFloat(strings.TrimSpace(split), 64)
			if err != nil {
				return lines, errors.Wrapf(err, "line %d, column %d", lineNum, i+1)
			}
			if i < inputNum {
				inputs[i] = num
			} else {
				targets[i-inputNum] = num
			}
		}
		lines = append(lines, Line{
			Inputs:  inputs,
			Targets: targets,
		})
	}
	if err := scanner.Err(); err != nil {
		return lines, errors.Wrap(err, "reading lines")
	}
	return lines, nil
}

func inputMatrix(lines Lines) *mat.Dense {
	cols := len(lines[0].Inputs)
	data := make([]float64, 0, len(lines)*cols)
	for _, line := range lines {
		data = append(data, line.Inputs...)
	}
	return mat.NewDense(len(lines), cols, data)
}

// CalculateMean returns the per-column mean of the inputs.
func CalculateMean(lines Lines) []float64 {
	mean, _ := meanStdDev(lines)
	return mean
}

// CalculateStdDev returns the per-column population standard deviation of the inputs.
func CalculateStdDev(lines Lines) []float64 {
	_, std := meanStdDev(lines)
	return std
}

func meanStdDev(lines Lines) ([]float64, []float64) {
	if len(lines) == 0 || len(lines[0].Inputs) == 0 {
		return nil, nil
	}
	m := inputMatrix(lines)
	rows, cols := m.Dims()
	mean := make([]float64, cols)
	std := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		mean[j], std[j] = stat.PopMeanStdDev(col, nil)
	}
	return mean, std
}

// NormalizeLines centres every input column on mean and scales it by std.
// Columns with zero deviation are only centred. Targets are shared, not copied.
func NormalizeLines(lines Lines, std []float64, mean []float64) Lines {
	normalizedLines := make(Lines, len(lines))
	for i, line := range lines {
		normalizedInputs := make([]float64, len(line.Inputs))
		for j, x := range line.Inputs {
			normalizedInputs[j] = x - mean[j]
			if std[j] != 0 {
				normalizedInputs[j] /= std[j]
			}
		}

		normalizedLines[i] = Line{
			Inputs:  normalizedInputs,
			Targets: line.Targets,
		}
	}
	return normalizedLines
}
