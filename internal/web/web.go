package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Fishwaldo/LineLogger/internal"
	"github.com/go-logr/logr"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"
)

func init() {
	viper.SetDefault("web.enabled", false)
	viper.SetDefault("web.port", 8080)
	internal.RegisterPlugin("web", &Web)
}

// StatusFunc returns a JSON-encodable value for the /status endpoint.
type StatusFunc func() interface{}

type WebServer struct {
	Echo *echo.Echo
	log  logr.Logger
	mx   deadlock.RWMutex
	// status providers, keyed by the name they appear under in /status
	status map[string]StatusFunc
}

var (
	Web WebServer
)

// RegisterStatus adds a provider to /status. It may be called before or
// after the server starts.
func RegisterStatus(name string, fn StatusFunc) {
	Web.mx.Lock()
	defer Web.mx.Unlock()
	if Web.status == nil {
		Web.status = make(map[string]StatusFunc)
	}
	Web.status[name] = fn
}

func (web *WebServer) Start(log logr.Logger) error {
	web.log = log
	if !viper.GetBool("web.enabled") {
		web.log.V(1).Info("Web Server Disabled")
		return nil
	}
	bind := fmt.Sprintf(":%d", viper.GetInt("web.port"))
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("can't listen on %s: %w", bind, err)
	}
	e := web.newEcho()
	e.Listener = ln
	web.Echo = e

	go func() {
		web.log.Info("Starting Web Server", "bind", bind)
		if err := e.Start(bind); err != nil && !errors.Is(err, http.ErrServerClosed) {
			web.log.Error(err, "Web Server Failed")
		}
	}()
	return nil
}

func (web *WebServer) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Routes
	e.GET("/", homePage)
	e.GET("/status", web.statusPage)
	return e
}

func (web *WebServer) Stop() {
	if web.Echo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := web.Echo.Shutdown(ctx); err != nil {
		web.log.Error(err, "Web Server Shutdown Failed")
	}
	// Serve may not have taken ownership of the listener yet
	web.Echo.Listener.Close()
	web.Echo = nil
}

func (web *WebServer) GetEchoServer() *echo.Echo {
	return web.Echo
}

func homePage(c echo.Context) error {
	return c.String(http.StatusOK, "LineLogger")
}

func (web *WebServer) statusPage(c echo.Context) error {
	web.mx.RLock()
	fns := make(map[string]StatusFunc, len(web.status))
	for name, fn := range web.status {
		fns[name] = fn
	}
	web.mx.RUnlock()

	out := make(map[string]interface{}, len(fns))
	for name, fn := range fns {
		out[name] = fn()
	}
	return c.JSON(http.StatusOK, out)
}
