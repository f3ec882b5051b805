// Command livectl holds a spoken conversation with the studio's live model
// from a terminal, using ffmpeg for the microphone and ffplay for the speaker.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/digkill/AIMultiverse/internal/live"
	"github.com/digkill/AIMultiverse/pkg/logger"
)

const meterWidth = 20

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("LIVECTL_SERVER", "http://localhost:8080"), "studio base URL")
	email := flag.String("email", os.Getenv("LIVECTL_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("LIVECTL_PASSWORD"), "account password")
	guest := flag.Bool("guest", false, "sign in as a new guest account")
	device := flag.String("device", os.Getenv("LIVECTL_DEVICE"), "ffmpeg capture device")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logr := logger.NewWriter(os.Stderr, *level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	token, err := signIn(ctx, *server, *email, *password, *guest)
	if err != nil {
		log.Fatalf("sign in: %v", err)
	}
	wsURL, err := liveURL(*server)
	if err != nil {
		log.Fatalf("live url: %v", err)
	}

	bridge := live.NewBridge(live.BridgeConfig{
		Microphone: ffmpegMic{device: *device},
		Dial: func(ctx context.Context) (live.Channel, error) {
			ch, err := live.Dial(ctx, wsURL, token)
			if err != nil {
				return nil, err
			}
			return ch, nil
		},
		NewOutput: newFFplayOutput,
		Logger:    logr,
		OnChange:  render,
	})

	fmt.Println("commands: enter = mute/unmute, c = connect, d = disconnect, q = quit")
	if err := bridge.Connect(ctx); err != nil {
		logr.Error("connect failed", "err", err)
	}

	commands := make(chan string)
	go readCommands(os.Stdin, commands)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			bridge.Disconnect()
			fmt.Println()
			return
		case <-ticker.C:
			if bridge.State() == live.StateStreaming {
				render(bridge.Snapshot())
			}
		case cmd, ok := <-commands:
			if !ok || cmd == "q" {
				bridge.Disconnect()
				fmt.Println()
				return
			}
			switch cmd {
			case "":
				bridge.SetMuted(!bridge.Snapshot().Muted)
			case "c":
				if err := bridge.Connect(ctx); err != nil && !errors.Is(err, live.ErrAlreadyActive) {
					logr.Error("connect failed", "err", err)
				}
			case "d":
				bridge.Disconnect()
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func readCommands(r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- strings.ToLower(strings.TrimSpace(scanner.Text()))
	}
}

func render(s live.Snapshot) {
	fmt.Print("\r\033[K" + statusLine(s))
}

func statusLine(s live.Snapshot) string {
	bars := min(live.LevelBars(s.Level, meterWidth), meterWidth)
	if s.Muted {
		bars = 0
	}
	line := fmt.Sprintf("[%s] %s |%s%s|", s.State, s.Status, strings.Repeat("#", bars), strings.Repeat(" ", meterWidth-bars))
	if s.Muted {
		line += " muted"
	}
	return line
}

type sessionResponse struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

func signIn(ctx context.Context, server, email, password string, guest bool) (string, error) {
	path := "/api/auth/login"
	var body any = map[string]string{"email": email, "password": password}
	if guest {
		path = "/api/auth/guest"
		body = struct{}{}
	} else if email == "" || password == "" {
		return "", errors.New("email and password are required unless -guest is set")
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(server, "/")+path, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: status=%d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("status=%d: %s", resp.StatusCode, out.Error)
	}
	return out.Token, nil
}

// liveURL maps the HTTP base URL to the relay websocket URL.
func liveURL(server string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/api/live"
	return u.String(), nil
}
