package rest

import "sync"

var (
	handler     *Handler
	handlerOnce sync.Once
)

// Provide builds the handler on first use. Later calls return the same
// instance whatever args they pass.
func Provide(args *ContainerArgs) *Handler {
	handlerOnce.Do(func() {
		handler = &Handler{
			service: NewService(args.Controller, args.Options),
		}
	})
	return handler
}
