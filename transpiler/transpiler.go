// Package transpiler reworks submitted circuits before execution. It
// runs in process; there is no external transpilation service.
package transpiler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/circuit"
	"github.com/qforge-dev/phase-engine/core"
)

const MaxOptimizationLevel = 2

type LocalTranspiler struct{}

func (t *LocalTranspiler) Setup(_ *core.Conf) error {
	zap.L().Debug("setting up local transpiler")
	return nil
}

func (t *LocalTranspiler) IsAcceptableOptimizationLevel(level int) bool {
	return level >= 0 && level <= MaxOptimizationLevel
}

func (t *LocalTranspiler) Transpile(j core.Job) error {
	jd := j.JobData()
	if jd.Transpiler == nil {
		return fmt.Errorf("job(%s) has no transpiler config", jd.ID)
	}
	level := jd.Transpiler.OptimizationLevel
	if !t.IsAcceptableOptimizationLevel(level) {
		return fmt.Errorf("optimization level %d is not acceptable", level)
	}
	circ, err := circuit.ParseQASM(jd.QASM)
	if err != nil {
		zap.L().Info(fmt.Sprintf("failed to parse circuit of job(%s)/reason:%s", jd.ID, err))
		return err
	}
	before := len(circ.Gates)
	if level >= 1 {
		circ = fuseAdjacentPhases(circ)
	}
	if level >= 2 {
		circ = decomposeSwaps(circ)
	}
	jd.TranspiledQASM = circ.ToQASM()
	zap.L().Debug(fmt.Sprintf("transpiled job(%s)/level:%d/gates:%d->%d",
		jd.ID, level, before, len(circ.Gates)))
	return nil
}

func (t *LocalTranspiler) TearDown() {}
