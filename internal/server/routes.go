package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/fabricctl/internal/fabric"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":    true,
			"uptime":   time.Since(s.Started).String(),
			"service":  s.ID,
			"version":  Version,
			"mode":     string(s.manager.Mode()),
			"switches": s.manager.Registry().Len(),
		})
	})

	r.GET("/switches", s.listSwitches)
	r.GET("/switches/:dpid", s.getSwitch)
	r.GET("/fabric/resolve/:dpid", s.resolve)
	r.GET("/fabric/route", s.route)
}

func (s *Server) listSwitches(c *gin.Context) {
	sessions := s.manager.Registry().List()
	out := make([]any, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Info())
	}
	c.JSON(http.StatusOK, gin.H{"switches": out})
}

func (s *Server) getSwitch(c *gin.Context) {
	dpid, ok := parseDPID(c, c.Param("dpid"))
	if !ok {
		return
	}
	sess, found := s.manager.Registry().Get(dpid)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "switch not connected"})
		return
	}
	c.JSON(http.StatusOK, sess.Info())
}

func (s *Server) resolve(c *gin.Context) {
	dpid, ok := parseDPID(c, c.Param("dpid"))
	if !ok {
		return
	}
	view, err := Resolve(s.manager.Engine(), dpid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) route(c *gin.Context) {
	dpid, ok := parseDPID(c, c.Query("dpid"))
	if !ok {
		return
	}
	dst, err := fabric.ParseAddress(c.Query("dst"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, err := Plan(s.manager.Engine(), dpid, dst)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func parseDPID(c *gin.Context, raw string) (uint64, bool) {
	dpid, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dpid: " + raw})
		return 0, false
	}
	return dpid, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, fabric.ErrConfiguration) {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
