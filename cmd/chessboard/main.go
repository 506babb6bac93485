// Standalone calibration board server, for showing the pattern on the phone
// without launching the desktop tool.
package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"smarthand/chessboard"
)

func main() {
	cfg := chessboard.DefaultConfig()

	var addr string
	flag.StringVar(&addr, "addr", ":8090", "listen address")
	flag.IntVar(&cfg.Cols, "cols", cfg.Cols, "board columns")
	flag.IntVar(&cfg.Rows, "rows", cfg.Rows, "board rows")
	flag.IntVar(&cfg.SquareSize, "square", cfg.SquareSize, "square size in pixels")
	flag.Parse()

	log := logrus.New()
	log.WithField("url", chessboard.URLFor(addr)).Info("open this on the phone")

	srv := chessboard.NewServer(cfg, log)
	if err := srv.ListenAndServe(addr); err != nil {
		log.WithError(err).Fatal("board server stopped")
	}
}
