package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = defaultReadTimeout
	shutdownTimeout     = 30 * time.Second
	gracefulEnvKey      = "PEDULIRASA_GRACEFUL"
	gracefulEnvValue    = gracefulEnvKey + "=1"
	gracefulListenerFD  = 3
)

// Server wraps http.Server with signal driven shutdown and zero-downtime restart (SIGUSR2).
type Server struct {
	*http.Server

	listener   net.Listener
	inherited  bool
	signals    chan os.Signal
	done       chan struct{}
	onShutdown []func()
}

// NewServer creates a Server. Hooks run after the HTTP server has drained.
func NewServer(addr string, handler http.Handler, hooks ...func()) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       defaultReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      defaultWriteTimeout,
		},
		inherited:  os.Getenv(gracefulEnvKey) != "",
		signals:    make(chan os.Signal, 1),
		done:       make(chan struct{}),
		onShutdown: hooks,
	}
}

// ListenAndServe serves on tcp until a shutdown signal has been handled.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := srv.listen(addr)
	if err != nil {
		return err
	}
	srv.listener = ln
	go srv.handleSignals()
	err = srv.Server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	<-srv.done
	return nil
}

func (srv *Server) listen(addr string) (net.Listener, error) {
	if srv.inherited {
		ln, err := net.FileListener(os.NewFile(gracefulListenerFD, ""))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func (srv *Server) handleSignals() {
	signal.Notify(srv.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	for sig := range srv.signals {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			Sugar.Infof("received %s, shutting down HTTP server", sig)
			srv.shutdown()
			return
		case syscall.SIGUSR2:
			pid, err := srv.fork()
			if err != nil {
				Sugar.Errorf("restart failed: %v, continue serving", err)
				continue
			}
			Sugar.Infof("new process started pid=%d, draining old server", pid)
			srv.shutdown()
			return
		}
	}
}

func (srv *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	}
	for _, hook := range srv.onShutdown {
		hook()
	}
	close(srv.done)
}

// fork starts a copy of the current binary that inherits the listening socket.
func (srv *Server) fork() (int, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener is not *net.TCPListener")
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}
	envs := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if e != gracefulEnvValue {
			envs = append(envs, e)
		}
	}
	envs = append(envs, gracefulEnvValue)
	return syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   envs,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	})
}

// GraceServer serves handler on addr until SIGINT/SIGTERM, then runs hooks.
func GraceServer(addr string, handler http.Handler, hooks ...func()) error {
	return NewServer(addr, handler, hooks...).ListenAndServe()
}
