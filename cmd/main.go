// FilePath: cmd/main.go
package main

import (
	"fmt"
	"os"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/config"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/server"
	tm "github.com/buger/goterm"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	nuts.InitVersion()
	if tm.Width() > 0 {
		clearConsole()
		drawBanner()
	}
	nuts.L.Infof("[Main] Cat Feeder Hub v%s", nuts.GetVersion())

	cfg, err := config.Load()
	if err != nil {
		nuts.L.Fatalf("[Main] Failed to load configuration: %v", err)
	}
	nuts.L.Infof("[Main] Backend %s, listening on %s:%d", cfg.Backend.Driver, cfg.Server.Host, cfg.Server.Port)

	if err := server.New(cfg).Start(); err != nil {
		nuts.L.Errorf("[Main] Server stopped: %v", err)
		os.Exit(1)
	}
	nuts.L.Infof("[Main] Bye")
}

func clearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

// drawBanner prints a bowl and the version. It is skipped when stdout is not
// a terminal.
func drawBanner() {
	banner := []string{
		`    /\_/\        CAT FEEDER HUB`,
		`   ( o.o )       food . weight . motion`,
		`    > ^ <   ___________________________`,
		`           \_________________________/  v` + nuts.GetVersion(),
	}
	fmt.Println()
	for _, line := range banner {
		fmt.Println(tm.Color(line, tm.YELLOW))
	}
	fmt.Println()
}
