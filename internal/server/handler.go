// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wneessen/geonear/internal/geo"
	"github.com/wneessen/geonear/internal/geocode"
	"github.com/wneessen/geonear/internal/logger"
	"github.com/wneessen/geonear/internal/metrics"
)

const (
	detailNotReady = "Geocoder service not ready (dataset missing)"
	detailNotFound = "Location not found"
	detailInternal = "Internal server error"
)

type statusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Ready   bool   `json:"ready"`
	Places  int    `json:"places"`
}

type geocodeResponse struct {
	geocode.Result
	Description string `json:"description"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		Status:  "online",
		Service: s.conf.Server.ServiceName,
		Ready:   s.status.Ready(),
		Places:  s.status.Len(),
	})
}

func (s *Server) reverseGeocode(c *gin.Context) {
	start := time.Now()
	coords, err := queryCoordinate(c)
	if err != nil {
		s.observe(metrics.OutcomeInvalid, start)
		c.JSON(http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}

	result, err := s.geocoder.Reverse(c.Request.Context(), coords)
	switch {
	case errors.Is(err, geocode.ErrUnavailable):
		s.observe(metrics.OutcomeUnavailable, start)
		c.JSON(http.StatusServiceUnavailable, errorResponse{Detail: detailNotReady})
		return
	case errors.Is(err, geocode.ErrNotFound):
		s.observe(metrics.OutcomeNotFound, start)
		c.JSON(http.StatusNotFound, errorResponse{Detail: detailNotFound})
		return
	case err != nil:
		s.observe(metrics.OutcomeError, start)
		s.logger.Error("reverse geocoding failed", logger.Err(err), "lat", coords.Lat, "lon", coords.Lon)
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: detailInternal})
		return
	}

	description, err := s.templates.RenderDescription(result)
	if err != nil {
		s.observe(metrics.OutcomeError, start)
		s.logger.Error("failed to render description", logger.Err(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: detailInternal})
		return
	}
	s.observe(metrics.OutcomeFound, start)
	c.JSON(http.StatusOK, geocodeResponse{Result: result, Description: description})
}

func (s *Server) observe(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveQuery(outcome, time.Since(start))
	}
}

// queryCoordinate reads the lat and lon query parameters. Values outside of the valid degree
// ranges are accepted, values that are not finite numbers are not.
func queryCoordinate(c *gin.Context) (geo.Coordinate, error) {
	lat, err := queryFloat(c, "lat")
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := queryFloat(c, "lon")
	if err != nil {
		return geo.Coordinate{}, err
	}
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}

func queryFloat(c *gin.Context, name string) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("missing query parameter: %s", name)
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, fmt.Errorf("query parameter %s must be a finite number", name)
	}
	return val, nil
}
