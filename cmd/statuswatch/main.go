// statuswatch tails a running refurboard instance: one line per
// telemetry snapshot, useful when tuning detection settings over SSH
// without the web page.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/refurboard/refurboard/internal/httpc"
	"github.com/refurboard/refurboard/internal/log"
	"github.com/refurboard/refurboard/pkg/app"
)

func main() {
	var (
		host     = flag.String("host", "localhost:8377", "refurboard host:port")
		logLevel = flag.String("log", "warn", "log level: debug, info, warn, error")
	)
	flag.Parse()
	log.Init(*logLevel)

	// A plain GET first: fail fast with a readable error when the
	// tracker is not running, instead of a websocket handshake dump.
	cfgURL := url.URL{Scheme: "http", Host: *host, Path: "/api/config"}
	resp, err := httpc.Get(cfgURL.String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "refurboard not reachable at %s: %v\n", *host, err)
		os.Exit(1)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	fmt.Printf("connected to %s\nconfig: %s\n", *host, body)

	wsURL := url.URL{Scheme: "ws", Host: *host, Path: "/ws/status"}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "websocket dial failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var snap app.Telemetry
			if err := conn.ReadJSON(&snap); err != nil {
				return
			}
			printSnapshot(snap)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func printSnapshot(snap app.Telemetry) {
	click := " "
	if snap.ClickActive {
		click = "*"
	}
	cam := "cam:ok"
	if !snap.CameraOK {
		cam = "cam:--"
	}
	fmt.Printf("%s %-12s %s click:%s pos=(%.3f, %.3f) intensity=%.1f baseline=%.1f\n",
		snap.UpdatedAt.Format("15:04:05.000"), snap.State, cam, click,
		snap.PointerX, snap.PointerY, snap.BlobIntensity, snap.Baseline)
}
