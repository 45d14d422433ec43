// Package server exposes the bus and the transformer over HTTP, so that
// capture clients can push batches and robot controllers can read them back.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roboticeyes/worldtobase/event"
	"github.com/roboticeyes/worldtobase/math"
	"github.com/roboticeyes/worldtobase/mocap"
	"github.com/roboticeyes/worldtobase/params"
	"github.com/roboticeyes/worldtobase/status"
)

var log = event.Log

// RequestIDHeader carries the id used to correlate log lines of one request
const RequestIDHeader = "X-Request-ID"

// Config of the HTTP bridge
type Config struct {
	// SigningKey enables bearer token validation on all /v1 routes when set
	SigningKey []byte
}

// Bus is the part of the message bus used by the server
type Bus interface {
	Publish(topic string, batch mocap.RigidBodyArray)
	Latest(topic string) (mocap.RigidBodyArray, bool)
}

// TransformResponse is the answer to a synchronous transform request
type TransformResponse struct {
	mocap.RigidBodyArray
	BaseFound  bool   `json:"base_found"`
	Diagnostic string `json:"diagnostic,omitempty"`
	// WorldToBase is the pose of the robot base in the world frame used for the batch
	WorldToBase math.Transformation `json:"world_to_base"`
}

// Server is the HTTP bridge
type Server struct {
	engine      *gin.Engine
	bus         Bus
	store       params.Store
	transformer mocap.Transformer
}

// New sets up the routes of the bridge
func New(cfg Config, b Bus, store params.Store) *Server {
	s := &Server{
		engine: gin.New(),
		bus:    b,
		store:  store,
	}
	s.engine.Use(gin.Recovery(), requestID)
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/v1")
	if len(cfg.SigningKey) > 0 {
		v1.Use(ValidateToken(cfg.SigningKey))
	}
	v1.GET("/params", s.getParams)
	v1.POST("/transform", s.transform)
	v1.POST("/topics/:topic", s.publish)
	v1.GET("/topics/:topic", s.latest)
	return s
}

// Handler returns the root handler of the bridge
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestID(c *gin.Context) {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Header(RequestIDHeader, id)

	start := time.Now()
	c.Next()
	log.WithFields(event.Fields{
		"request_id": id,
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"status":     c.Writer.Status(),
		"latency":    time.Since(start),
	}).Debug("Handled request")
}

func (s *Server) getParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func bindBatch(c *gin.Context) (mocap.RigidBodyArray, bool) {
	var batch mocap.RigidBodyArray
	if err := c.ShouldBindJSON(&batch); err != nil {
		status.NewHTTPStatus(c, http.StatusBadRequest, fmt.Errorf("cannot decode rigid body array: %w", err))
		return batch, false
	}
	return batch, true
}

// transform runs one batch through the transformer with the current
// parameters, without going through the bus.
func (s *Server) transform(c *gin.Context) {
	batch, ok := bindBatch(c)
	if !ok {
		return
	}
	res := s.transformer.Transform(batch, s.store.Snapshot().Calibration())

	resp := TransformResponse{
		RigidBodyArray: res.Batch,
		BaseFound:      res.Base.Found(),
		WorldToBase:    math.TransformationFromMatrix(res.WorldToBase),
	}
	if res.Missing != nil {
		resp.Diagnostic = res.Missing.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) publish(c *gin.Context) {
	batch, ok := bindBatch(c)
	if !ok {
		return
	}
	s.bus.Publish(c.Param("topic"), batch)
	c.Status(http.StatusAccepted)
}

func (s *Server) latest(c *gin.Context) {
	topic := c.Param("topic")
	batch, ok := s.bus.Latest(topic)
	if !ok {
		status.NewHTTPStatus(c, http.StatusNotFound, fmt.Errorf("nothing published on topic %s", topic))
		return
	}
	c.JSON(http.StatusOK, batch)
}
