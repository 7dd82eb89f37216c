package main

import (
	"bufio"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dmsg/config"
	"dmsg/db"
	"dmsg/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.Load()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	srvConfig := &server.Config{
		Port:         cfg.Port,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}

	srv := server.New(database, srvConfig)

	// Management commands (stats, shutdown) arrive over a local
	// socket, separate from the client port.
	go startControlSocket(srv, cfg.ControlSocket)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		srv.Shutdown("maintenance")
		os.Remove(cfg.ControlSocket)
		os.Exit(0)
	}()

	log.Fatal(srv.Start())
}

func startControlSocket(srv *server.Server, socketPath string) {
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		log.Printf("Failed to create control socket: %v", err)
		return
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	log.Printf("Control socket listening on %s", socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			continue
		}

		go handleControlCommand(srv, conn, socketPath)
	}
}

func handleControlCommand(srv *server.Server, conn net.Conn, socketPath string) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	parts := strings.SplitN(strings.TrimSpace(line), "|", 2)

	switch parts[0] {
	case "stats":
		conn.Write([]byte("OK|" + srv.Stats() + "\n"))

	case "shutdown":
		reason := "maintenance"
		if len(parts) >= 2 && parts[1] != "" {
			reason = parts[1]
		}

		conn.Write([]byte("OK|Shutting down\n"))
		conn.Close()

		// Give time for the response to be sent.
		time.Sleep(100 * time.Millisecond)

		log.Printf("Shutdown requested: reason=%s", reason)
		srv.Shutdown(reason)

		os.Remove(socketPath)
		os.Exit(0)

	default:
		conn.Write([]byte("ERROR|Unknown command\n"))
	}
}
