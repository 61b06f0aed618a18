// Package modkit defines the minimal module contract used to wire each
// service into the CLI and the HTTP surface.
package modkit

import (
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/config"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/netkit"
)

// Deps are the process-wide dependencies every module is constructed with.
type Deps struct {
	Cfg      config.Conf
	RootDir  string
}

// Module is the contract every service package's module.Module implements.
type Module interface {
	Name() string
	Ports() any
	MountRoutes(r netkit.Router)
}
