package main

import (
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leonardcser/cachestorage/internal/config"
	"github.com/leonardcser/cachestorage/internal/logger"
	"github.com/leonardcser/cachestorage/internal/storage"
)

type closingStorage interface {
	storage.Storage
	Close() error
}

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	store, err := openLocal(&cfg)
	if err != nil {
		logger.Errorf("Failed to open local namespace: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755)
	_ = os.Remove(cfg.SocketPath)

	l, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		logger.Errorf("Failed to listen on %s: %v", cfg.SocketPath, err)
		os.Exit(1)
	}
	_ = os.Chmod(cfg.SocketPath, 0o600)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Infof("Shutting down storage daemon")
		_ = l.Close()
	}()

	srv := storage.NewServer(store)
	srv.OnError = func(err error) { logger.Warnf("connection error: %v", err) }

	logger.Infof("Storage daemon serving local namespace on %s", cfg.SocketPath)
	if err := srv.Serve(l); err != nil {
		logger.Errorf("serve: %v", err)
	}
}

func openLocal(cfg *config.Config) (closingStorage, error) {
	if cfg.RedisAddr != "" {
		logger.Infof("Hosting local namespace in redis at %s", cfg.RedisAddr)
		return storage.OpenRedis(storage.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	}
	logger.Infof("Hosting local namespace in %s (bucket %s)", cfg.DBPath, cfg.Bucket)
	return storage.OpenBolt(cfg.DBPath, storage.BoltOptions{Bucket: cfg.Bucket})
}
