package sim

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/common"
)

type BackendSetting struct {
	BackendName  string        `toml:"backend_name"`
	ProviderName string        `toml:"provider_name"`
	MaxQubits    int           `toml:"max_qubits"`
	MaxShots     int           `toml:"max_shots"`
	ReadoutError *ReadoutError `toml:"readout_error"`
}

type ReadoutError struct {
	Enabled        bool    `toml:"enabled"`
	ProbMeas1Prep0 float64 `toml:"prob_meas1_prep0"`
	ProbMeas0Prep1 float64 `toml:"prob_meas0_prep1"`
}

func NewBackendSetting() *BackendSetting {
	return &BackendSetting{
		BackendName:  "local_statevector",
		ProviderName: "phase-engine",
		MaxQubits:    25,
		MaxShots:     1000000,
		ReadoutError: &ReadoutError{},
	}
}

// LoadBackendSetting reads the TOML backend setting. A missing file is
// not an error; defaults apply.
func LoadBackendSetting(path string) (*BackendSetting, error) {
	bs := NewBackendSetting()
	blob, readErr := common.ReadFile(path)
	if readErr != nil {
		zap.L().Info(fmt.Sprintf("Failed to read file:%s Reason:%s", path, readErr))
		return bs, nil
	}
	if _, err := toml.Decode(blob, bs); err != nil {
		zap.L().Error(fmt.Sprintf("failed to decode blob:%s", blob))
		return &BackendSetting{}, err
	}
	if bs.ReadoutError == nil {
		bs.ReadoutError = &ReadoutError{}
	}
	return bs, nil
}
