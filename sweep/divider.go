package sweep

import (
	"errors"

	"github.com/qforge-dev/phase-engine/core"
)

// divideStringByLengths splits a combined bit string into per-circuit
// segments, e.g. "101011011" with lengths [2, 3, 4] gives
// ["10", "101", "1011"].
func divideStringByLengths(input string, lengths []int) ([]string, error) {
	result := []string{}
	currentPos := 0
	for _, length := range lengths {
		if currentPos+length > len(input) {
			return nil, errors.New("inconsistent qubits")
		}
		result = append(result, input[currentPos:currentPos+length])
		currentPos += length
	}
	if currentPos != len(input) {
		return nil, errors.New("inconsistent qubits")
	}
	return result, nil
}

// DivideResult splits the counts of a combined run back into
// per-circuit counts. The leftmost segment of a combined bit string
// holds the highest classical bits, so it belongs to the last circuit.
func DivideResult(jd *core.JobData, combinedBitsList []int) error {
	if len(jd.Result.Counts) == 0 {
		return errors.New("no counts to divide")
	}
	divided := core.DividedResult{}
	for k, v := range jd.Result.Counts {
		segments, err := divideStringByLengths(k, combinedBitsList)
		if err != nil {
			return err
		}
		for i, segment := range segments {
			ith := uint32(len(combinedBitsList)-i) - 1
			if _, exists := divided[ith]; !exists {
				divided[ith] = core.Counts{}
			}
			divided[ith][segment] += v
		}
	}
	jd.Result.DividedResult = divided
	return nil
}
