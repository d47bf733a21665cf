// Package api provides the REST API server for scorestream
package api

import (
	"cmp"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/config"
	"github.com/james-see/scorestream/pkg/converter"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/stream"
)

// @title Scorestream API
// @version 1.0
// @description API for loading MIDI files as scores and querying streams and meters
// @host localhost:8080
// @BasePath /api/v1

// Server serves uploaded scores from memory.
type Server struct {
	conv    *converter.Converter
	scores  *store
	origins []string
	engine  *gin.Engine
}

// NewServer builds the router. An empty origin list allows every origin.
func NewServer(conv *converter.Converter, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	s := &Server{conv: conv, scores: newStore(), origins: allowedOrigins}

	r := gin.Default()
	r.GET("/health", s.healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.healthCheck)
		v1.GET("/formats", listFormats)
		v1.GET("/meter", meterInfo)
		v1.POST("/scores", s.uploadScore)
		v1.GET("/scores/:id", s.getScore)
		v1.DELETE("/scores/:id", s.deleteScore)
		v1.GET("/scores/:id/measures", s.listMeasures)
		v1.GET("/scores/:id/elements", s.listElements)
		v1.GET("/scores/:id/overlaps", s.listOverlaps)
		v1.GET("/scores/:id/midi", s.downloadMIDI)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine = r
	return s
}

// Handler returns the router wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(s.engine)
}

// Run listens on the given port.
func (s *Server) Run(port int) error {
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.Handler())
}

// StartServer starts the API server described by cfg
func StartServer(cfg config.Config) error {
	return NewServer(converter.New(cfg.Converter()), cfg.Server.AllowedOrigins).Run(cfg.Server.Port)
}

// writeError maps the error categories onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case common.IsNotFound(err):
		status = http.StatusNotFound
	case common.IsInvariant(err):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "scorestream",
		"scores":  s.scores.len(),
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{string(converter.FormatMIDI), string(converter.FormatText)},
		"conversions": converter.GetSupportedConversions(),
	})
}

// meterInfo godoc
// @Summary Describe a time signature
// @Description Returns the beat, beam and accent structure of a meter, and the beat position of an offset within its bar
// @Tags meter
// @Produce json
// @Param ts query string false "Time signature (default: 4/4)"
// @Param offset query number false "Offset in quarter lengths within the bar"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/meter [get]
func meterInfo(c *gin.Context) {
	ts, err := meter.NewTimeSignature(c.DefaultQuery("ts", stream.DefaultTimeSignature))
	if err != nil {
		writeError(c, err)
		return
	}
	offset, err := strconv.ParseFloat(c.DefaultQuery("offset", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	beat, err := ts.GetBeatProportion(offset)
	if err != nil {
		writeError(c, err)
		return
	}
	depth, err := ts.GetBeatDepth(offset)
	if err != nil {
		writeError(c, err)
		return
	}
	weight, err := ts.GetAccentWeight(offset)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{
		"ratio":          ts.Ratio(),
		"barDuration":    ts.BarDuration(),
		"beatCount":      ts.BeatCount(),
		"isCompound":     ts.IsCompound(),
		"beatSequence":   ts.BeatSequence().String(),
		"beamSequence":   ts.BeamSequence().String(),
		"accentSequence": ts.AccentSequence().String(),
		"offset":         offset,
		"beat":           beat,
		"beatDepth":      depth,
		"accentWeight":   weight,
	}
	if d, err := ts.BeatDuration(); err == nil {
		resp["beatDuration"] = d
	}
	c.JSON(http.StatusOK, resp)
}

// uploadScore godoc
// @Summary Upload a MIDI file
// @Description Parses a MIDI file into a score and stores it under a new id
// @Tags scores
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/scores [post]
func (s *Server) uploadScore(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if converter.DetectFormatFromContent(data) != converter.FormatMIDI {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a MIDI file"})
		return
	}
	score, err := s.conv.ParseMIDI(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := s.scores.add(header.Filename, score)
	c.JSON(http.StatusCreated, gin.H{
		"id":      id,
		"name":    header.Filename,
		"summary": converter.Summarize(score),
	})
}

// getScore godoc
// @Summary Describe a stored score
// @Tags scores
// @Produce json
// @Param id path string true "Score id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/scores/{id} [get]
func (s *Server) getScore(c *gin.Context) {
	st, err := s.scores.get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var sum converter.Summary
	_ = st.with(func(score *stream.Stream) error {
		sum = converter.Summarize(score)
		return nil
	})
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "name": st.name, "summary": sum})
}

// deleteScore godoc
// @Summary Forget a stored score
// @Tags scores
// @Param id path string true "Score id"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/scores/{id} [delete]
func (s *Server) deleteScore(c *gin.Context) {
	if err := s.scores.remove(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type elementView struct {
	Offset        float64 `json:"offset"`
	Class         string  `json:"class"`
	QuarterLength float64 `json:"quarterLength"`
	ID            string  `json:"id,omitempty"`
	Text          string  `json:"text"`
}

func elementViews(s *stream.Stream) []elementView {
	out := []elementView{}
	for off, el := range s.All() {
		out = append(out, elementView{
			Offset:        off,
			Class:         el.Kind().String(),
			QuarterLength: el.Base().QuarterLength(),
			ID:            el.Base().ID(),
			Text:          fmt.Sprint(el),
		})
	}
	return out
}

type measureView struct {
	Number        int           `json:"number"`
	Offset        float64       `json:"offset"`
	TimeSignature string        `json:"timeSignature,omitempty"`
	Elements      []elementView `json:"elements"`
}

type partView struct {
	ID       string        `json:"id"`
	Measures []measureView `json:"measures"`
}

// listMeasures godoc
// @Summary List measures
// @Description Returns each part's measures, splitting the score into measures first when it has none
// @Tags scores
// @Produce json
// @Param id path string true "Score id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/scores/{id}/measures [get]
func (s *Server) listMeasures(c *gin.Context) {
	st, err := s.scores.get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var parts []partView
	err = st.with(func(score *stream.Stream) error {
		measured := score
		if ps := score.Parts(); len(ps) == 0 || len(ps[0].Measures()) == 0 {
			if measured, err = score.MakeNotation(nil); err != nil {
				return err
			}
		}
		ps := measured.Parts()
		if len(ps) == 0 {
			ps = []*stream.Stream{measured}
		}
		for _, p := range ps {
			pv := partView{ID: p.ID()}
			for _, m := range p.Measures() {
				off, err := p.ElementOffset(m)
				if err != nil {
					return err
				}
				mv := measureView{Number: m.Number(), Offset: off, Elements: elementViews(m)}
				if ts := m.ActiveTimeSignature(); ts != nil {
					mv.TimeSignature = ts.Ratio()
				}
				pv.Measures = append(pv.Measures, mv)
			}
			parts = append(parts, pv)
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parts": parts})
}

func boolQuery(c *gin.Context, key string, def bool) (bool, error) {
	v, ok := c.GetQuery(key)
	if !ok {
		return def, nil
	}
	return strconv.ParseBool(v)
}

// listElements godoc
// @Summary Query elements
// @Description Returns the flattened elements of a score, filtered by class and offset range
// @Tags scores
// @Produce json
// @Param id path string true "Score id"
// @Param class query string false "Comma separated classes, e.g. Note,Rest"
// @Param start query number false "Range start in quarter lengths"
// @Param end query number false "Range end in quarter lengths (default: start)"
// @Param includeEndBoundary query bool false "Match elements starting at end (default: true)"
// @Param mustFinishInSpan query bool false "Only elements ending within the range"
// @Param mustBeginInSpan query bool false "Only elements starting within the range (default: true)"
// @Param includeElementsThatEndAtStart query bool false "Match elements ending at start (default: true)"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/scores/{id}/elements [get]
func (s *Server) listElements(c *gin.Context) {
	st, err := s.scores.get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	var kinds []base.Kind
	if cls := c.Query("class"); cls != "" {
		for _, name := range strings.Split(cls, ",") {
			k, err := base.ParseKind(strings.TrimSpace(name))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			kinds = append(kinds, k)
		}
	}

	startStr, hasRange := c.GetQuery("start")
	var start, end float64
	var opts []stream.OffsetOption
	if hasRange {
		if start, err = strconv.ParseFloat(startStr, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
			return
		}
		end = start
		if v, ok := c.GetQuery("end"); ok {
			if end, err = strconv.ParseFloat(v, 64); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end"})
				return
			}
		}
		flags := []struct {
			key string
			def bool
			opt func(bool) stream.OffsetOption
		}{
			{"includeEndBoundary", true, stream.IncludeEndBoundary},
			{"mustFinishInSpan", false, stream.MustFinishInSpan},
			{"mustBeginInSpan", true, stream.MustBeginInSpan},
			{"includeElementsThatEndAtStart", true, stream.IncludeElementsThatEndAtStart},
		}
		for _, f := range flags {
			v, err := boolQuery(c, f.key, f.def)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + f.key})
				return
			}
			opts = append(opts, f.opt(v))
		}
	}

	var out []elementView
	_ = st.with(func(score *stream.Stream) error {
		q := score.Flat()
		if len(kinds) > 0 {
			q = q.GetElementsByClass(kinds...)
		}
		if hasRange {
			q = q.GetElementsByOffset(start, end, opts...)
		}
		out = elementViews(q)
		return nil
	})
	c.JSON(http.StatusOK, gin.H{"elements": out})
}

type overlapView struct {
	Offset   float64       `json:"offset"`
	Elements []elementView `json:"elements"`
}

// listOverlaps godoc
// @Summary List overlapping notes
// @Description Returns clusters of notes and chords that sound at the same time, keyed by the earliest offset
// @Tags scores
// @Produce json
// @Param id path string true "Score id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/scores/{id}/overlaps [get]
func (s *Server) listOverlaps(c *gin.Context) {
	st, err := s.scores.get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := []overlapView{}
	_ = st.with(func(score *stream.Stream) error {
		for off, group := range score.Flat().Notes().GetOverlaps(false, false) {
			out = append(out, overlapView{Offset: off, Elements: elementViews(group)})
		}
		return nil
	})
	slices.SortFunc(out, func(a, b overlapView) int { return cmp.Compare(a.Offset, b.Offset) })
	c.JSON(http.StatusOK, gin.H{"overlaps": out})
}

// downloadMIDI godoc
// @Summary Download a score as MIDI
// @Tags scores
// @Produce audio/midi
// @Param id path string true "Score id"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /api/v1/scores/{id}/midi [get]
func (s *Server) downloadMIDI(c *gin.Context) {
	st, err := s.scores.get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var data []byte
	err = st.with(func(score *stream.Stream) error {
		data, err = s.conv.GenerateMIDI(score)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	outputName := strings.TrimSuffix(st.name, filepath.Ext(st.name))
	if outputName == "" {
		outputName = "score"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.mid", outputName))
	c.Data(http.StatusOK, "audio/midi", data)
}
