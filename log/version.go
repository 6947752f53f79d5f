package log

import (
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/core"
)

const VersionLogTaskName = "version_log"

type VersionLogTaskImpl struct {
	core.DefaultTaskImpl
}

func (v *VersionLogTaskImpl) Task() {
	zap.L().Debug("Engine version:" + core.Version)
}
