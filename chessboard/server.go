// Package chessboard serves the calibration chessboard pattern as a web page
// for the phone to display. The camera only needs "a board with known
// internal corners on the screen", so the server renders plain SVG with
// configurable geometry and colors.
package chessboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

//go:embed templates/*
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))

// Config describes the rendered board. Cols and Rows count squares; the
// detector's internal corner grid is one less in each direction.
type Config struct {
	Cols       int    `json:"cols"`
	Rows       int    `json:"rows"`
	SquareSize int    `json:"square_size"`
	Margin     int    `json:"margin"`
	DarkColor  string `json:"dark_color"`
	LightColor string `json:"light_color"`
}

// DefaultConfig is a 10x7 board, which yields the 9x6 internal corner grid
// the detector defaults to.
func DefaultConfig() Config {
	return Config{
		Cols:       10,
		Rows:       7,
		SquareSize: 60,
		Margin:     20,
		DarkColor:  "#000000",
		LightColor: "#ffffff",
	}
}

// Server renders the board and a small info endpoint.
type Server struct {
	cfg Config
	log *logrus.Logger
}

// NewServer creates a chessboard server with the given default board.
func NewServer(cfg Config, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{cfg: cfg, log: log}
}

// Handler returns the HTTP handler, separate from serving so tests can use
// httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/info", s.handleInfo)
	return mux
}

// ListenAndServe serves the board on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.log.WithFields(logrus.Fields{"addr": addr, "local_ip": LocalIP()}).Info("serving chessboard pattern")
	return http.ListenAndServe(addr, s.Handler())
}

type square struct {
	X    int
	Y    int
	Fill string
}

type boardView struct {
	Width      int
	Height     int
	SquareSize int
	Background string
	Squares    []square
}

// boardFor applies query overrides (cols, rows, square) to the configured
// board so the operator can change the pattern from the phone itself.
func (s *Server) boardFor(r *http.Request) Config {
	cfg := s.cfg
	q := r.URL.Query()
	for name, dst := range map[string]*int{
		"cols":   &cfg.Cols,
		"rows":   &cfg.Rows,
		"square": &cfg.SquareSize,
	} {
		if v, err := strconv.Atoi(q.Get(name)); err == nil && v > 0 {
			*dst = v
		}
	}
	return cfg
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cfg := s.boardFor(r)

	view := boardView{
		Width:      cfg.Cols*cfg.SquareSize + 2*cfg.Margin,
		Height:     cfg.Rows*cfg.SquareSize + 2*cfg.Margin,
		SquareSize: cfg.SquareSize,
		Background: cfg.LightColor,
	}
	for row := range cfg.Rows {
		for col := range cfg.Cols {
			fill := cfg.LightColor
			if (row+col)%2 == 0 {
				fill = cfg.DarkColor
			}
			view.Squares = append(view.Squares, square{
				X:    cfg.Margin + col*cfg.SquareSize,
				Y:    cfg.Margin + row*cfg.SquareSize,
				Fill: fill,
			})
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := indexTemplate.Execute(w, view); err != nil {
		s.log.WithError(err).Error("error rendering chessboard page")
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	payload := struct {
		LocalIP string `json:"local_ip"`
		Config  Config `json:"config"`
	}{
		LocalIP: LocalIP(),
		Config:  s.cfg,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Error("error encoding info response")
	}
}

// LocalIP is a best-effort guess at the host's primary IPv4 address, shown
// to the operator so they can open the board on the phone.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}

// URLFor returns the address to type into the phone's browser for a server
// listening on addr (":8080" or "host:8080").
func URLFor(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("http://%s/", addr)
	}
	return fmt.Sprintf("http://%s:%s/", LocalIP(), port)
}
