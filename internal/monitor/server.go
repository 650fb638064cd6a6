package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alia5/padmap/device"
)

// Config is the monitor subcommand configuration.
type Config struct {
	Addr string `help:"Monitor listen address" default:"localhost:3243" env:"PADMAP_MONITOR_ADDR"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes the device list over HTTP and streams events on /ws.
type Server struct {
	hub         *Hub
	broadcaster *Broadcaster
	devices     DeviceLister
	lookup      DeviceLookup
	logger      *slog.Logger
	httpServer  *http.Server
}

func New(devices DeviceLister, lookup DeviceLookup, logger *slog.Logger) *Server {
	h := NewHub(logger)
	return &Server{
		hub:         h,
		broadcaster: NewBroadcaster(h, devices, logger),
		devices:     devices,
		lookup:      lookup,
		logger:      logger,
	}
}

// Broadcaster returns the broadcaster to pass as the manager's sink.
func (s *Server) Broadcaster() *Broadcaster { return s.broadcaster }

// Handler returns the HTTP routes of the monitor.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /devices", s.handleDevices)
	mux.HandleFunc("GET /devices/{handle}", s.handleDevice)
	return mux
}

// Serve runs the hub and serves ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.hub.Run(ctx)
	go s.broadcaster.Run(ctx)

	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("monitor listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("monitor stopped")
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, s.logger)
	s.broadcaster.SendInitialState(client)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(s.lookup)
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewDevicesMessage(0, s.devices.Devices()).Devices)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("handle"))
	if err != nil {
		writeProblem(w, ErrBadRequest("invalid handle: "+r.PathValue("handle")))
		return
	}
	for _, d := range s.devices.Devices() {
		if d.Handle == device.Handle(n) {
			writeJSON(w, http.StatusOK, DeviceRef{Handle: d.Handle, Driver: d.Driver, Info: d.Info})
			return
		}
	}
	writeProblem(w, ErrNotFound("no device with handle "+strconv.Itoa(n)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
