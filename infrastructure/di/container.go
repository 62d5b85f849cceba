package di

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/ports"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/render"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/store"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/fetch"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/messaging"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/observability"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/persistence/file"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/interfaces/websocket"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Container holds all application dependencies. Collector and Forwarder
// are nil when metrics or event export are disabled.
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	LogLevel     zap.AtomicLevel
	ErrorHandler *errors.ErrorHandler
	Collector    *observability.Collector
	Fetcher      *fetch.Fetcher
	Snapshots    ports.SnapshotStore
	Files        *file.Documents
	Store        *store.Store
	Filters      *filters.State
	Sync         *filters.Sync
	Registry     *render.Registry
	Hub          *websocket.Hub
	Broadcaster  *websocket.Broadcaster
	Forwarder    *messaging.Forwarder
	Handler      http.Handler
}
