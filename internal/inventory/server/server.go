package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/httpx"
	"github.com/rackhaus/rackd/internal/common/logtrace"
	commonmiddleware "github.com/rackhaus/rackd/internal/common/middleware"
	"github.com/rackhaus/rackd/internal/inventory/apis"
	"github.com/rackhaus/rackd/internal/inventory/config"
	"github.com/rackhaus/rackd/internal/inventory/pduclient"
	"github.com/rackhaus/rackd/internal/inventory/server/middleware"
)

type InventoryServer struct {
	Router *chi.Mux
}

func CreateNewServer() (*InventoryServer, error) {
	s := &InventoryServer{}
	s.Router = chi.NewRouter()
	return s, nil
}

func (s *InventoryServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-User-Id", "X-Change-Plan"},
		}))
	}

	timeout, err := time.ParseDuration(config.Config().PDUControllerTimeout)
	if err != nil {
		timeout = 5 * time.Second
	}
	apis.Init(pduclient.New(config.Config().PDUControllerURL, timeout))

	s.Router.Route("/", s.mountResourceHandlers)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in inventory router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			fmt.Printf("Logging err: %s\n", err.Error())
		}
	}
}

func (s *InventoryServer) mountResourceHandlers(r chi.Router) {
	r.Use(middleware.LoadScopedDB)
	r.Mount("/", s.apiRouter())
	r.Get("/version", s.getVersion)
}

func (s *InventoryServer) apiRouter() chi.Router {
	r := chi.NewRouter()
	apis.Router(r)
	return r
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *InventoryServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Rackhaus Inventory Server: 0.1.0",
		ApiVersion:    "v1",
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}
