package interfaces

import (
	"context"

	"github.com/KevinKickass/FlasherCore/internal/catalog"
	"github.com/KevinKickass/FlasherCore/internal/config"
	"github.com/KevinKickass/FlasherCore/internal/controllers"
	"github.com/KevinKickass/FlasherCore/internal/pipeline"
	"github.com/KevinKickass/FlasherCore/internal/scaffold"
	"github.com/KevinKickass/FlasherCore/internal/storage"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State          string `json:"state"`
	CatalogSource  string `json:"catalog_source"`
	DeviceTypes    int    `json:"device_types"`
	Controllers    int    `json:"controllers"`
	HistoryBackend string `json:"history_backend"`
	EventsBroker   bool   `json:"events_broker"`
}

type LifecycleManager interface {
	Config() *config.Config
	Pipeline() *pipeline.Pipeline
	Catalog() *catalog.Store
	Controllers() *controllers.Registry
	Scaffolder() *scaffold.Scaffolder
	History() storage.History
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
