package audiopolicy

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/audio"
	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/logging"
)

type serverDeps struct {
	core       *audio.AudioCoreService
	interrupts *audio.AudioInterruptService
	devices    *audio.AudioDeviceManager
	pipes      *audio.AudioPipeManager
	active     *audio.ActiveDeviceState
	dispatcher *audio.AudioEventDispatcher
}

// server is the thin RPC façade: it translates HTTP calls into calls on
// the policy services and carries no policy of its own.
type server struct {
	serverDeps
	logger zerolog.Logger
}

func newServer(deps serverDeps) *server {
	return &server{
		serverDeps: deps,
		logger:     logging.GetDefaultLogger().With().Str("component", "audio-web").Logger(),
	}
}

func (s *server) run(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/audio/events", s.handleEvents)

	r.POST("/audio/renderers", s.handleCreateRenderer)
	r.POST("/audio/capturers", s.handleCreateCapturer)
	r.POST("/audio/streams/:id/start", s.streamOp((*audio.AudioCoreService).StartClient))
	r.POST("/audio/streams/:id/pause", s.streamOp((*audio.AudioCoreService).PauseClient))
	r.POST("/audio/streams/:id/stop", s.streamOp((*audio.AudioCoreService).StopClient))
	r.POST("/audio/streams/:id/release", s.streamOp((*audio.AudioCoreService).ReleaseClient))

	r.POST("/audio/scene", s.handleSetScene)
	r.POST("/audio/ringer-mode", s.handleSetRingerMode)
	r.POST("/audio/fetch", s.handleTriggerFetch)

	r.GET("/audio/devices", s.handleListDevices)
	r.POST("/audio/devices/status", s.handleDeviceStatus)
	r.POST("/audio/devices/active", s.handleSetDeviceActive)

	r.POST("/audio/interrupts/activate", s.handleActivateInterrupt)
	r.POST("/audio/interrupts/deactivate", s.handleDeactivateInterrupt)
	r.GET("/audio/focus", s.handleFocusList)

	r.POST("/audio/sessions/activate", s.handleActivateSession)
	r.POST("/audio/sessions/deactivate", s.handleDeactivateSession)

	r.GET("/audio/dump", s.handleDump)

	s.logger.Info().Str("addr", addr).Msg("web server listening")
	return r.Run(addr)
}

func (s *server) handleEvents(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	ctx := c.Request.Context()
	id := s.dispatcher.Subscribe(ctx, conn, &s.logger)
	defer s.dispatcher.Unsubscribe(id)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Drain client frames until the connection drops; writes happen on
	// the dispatcher goroutine.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

type createRendererRequest struct {
	UID            int32  `json:"uid"`
	PID            int32  `json:"pid"`
	Usage          int    `json:"usage"`
	StreamType     int    `json:"stream_type"`
	OriginalFlag   uint32 `json:"original_flag"`
	SampleRate     int    `json:"sample_rate"`
	Channels       int    `json:"channels"`
	BitDepth       int    `json:"bit_depth"`
	PcmOffload     bool   `json:"pcm_offload"`
	Spatialized    bool   `json:"spatialized"`
	OffloadAllowed bool   `json:"offload_allowed"`
}

func (s *server) handleCreateRenderer(c *gin.Context) {
	var req createRendererRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	desc := &audio.AudioStreamDescriptor{
		UID: req.UID,
		PID: req.PID,
		RendererInfo: &audio.RendererInfo{
			Usage:          audio.StreamUsage(req.Usage),
			StreamType:     audio.AudioStreamType(req.StreamType),
			OriginalFlag:   audio.AudioFlag(req.OriginalFlag),
			SampleRate:     req.SampleRate,
			Channels:       req.Channels,
			BitDepth:       req.BitDepth,
			PcmOffload:     req.PcmOffload,
			Spatialized:    req.Spatialized,
			OffloadAllowed: req.OffloadAllowed,
		},
	}
	flag, sessionID, err := s.core.CreateRendererClient(desc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flag": flag.String(), "session_id": sessionID})
}

type createCapturerRequest struct {
	UID          int32  `json:"uid"`
	PID          int32  `json:"pid"`
	SourceType   int    `json:"source_type"`
	OriginalFlag uint32 `json:"original_flag"`
	SampleRate   int    `json:"sample_rate"`
	Channels     int    `json:"channels"`
}

func (s *server) handleCreateCapturer(c *gin.Context) {
	var req createCapturerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	desc := &audio.AudioStreamDescriptor{
		UID: req.UID,
		PID: req.PID,
		CapturerInfo: &audio.CapturerInfo{
			SourceType:   audio.SourceType(req.SourceType),
			OriginalFlag: audio.AudioFlag(req.OriginalFlag),
			SampleRate:   req.SampleRate,
			Channels:     req.Channels,
		},
	}
	flag, sessionID, err := s.core.CreateCapturerClient(desc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flag": flag.String(), "session_id": sessionID})
}

func (s *server) streamOp(op func(*audio.AudioCoreService, uint32) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}
		if err := op(s.core, uint32(id)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (s *server) handleSetScene(c *gin.Context) {
	var req struct {
		Scene int   `json:"scene"`
		UID   int32 `json:"uid"`
		PID   int32 `json:"pid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.core.SetAudioScene(audio.AudioScene(req.Scene), req.UID, req.PID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleSetRingerMode(c *gin.Context) {
	var req struct {
		Mode int `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.core.SetRingerMode(audio.RingerMode(req.Mode))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleTriggerFetch(c *gin.Context) {
	var req struct {
		Reason int `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.core.TriggerFetchDevice(audio.SwitchReason(req.Reason)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, s.devices.GetConnectedDevices())
}

func (s *server) handleDeviceStatus(c *gin.Context) {
	var req struct {
		Device    audio.AudioDeviceDescriptor `json:"device"`
		Connected bool                        `json:"connected"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.core.OnDeviceStatusUpdated(&req.Device, req.Connected); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleSetDeviceActive(c *gin.Context) {
	var req struct {
		DeviceType int   `json:"device_type"`
		Active     bool  `json:"active"`
		UID        int32 `json:"uid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.core.SetDeviceActive(audio.DeviceType(req.DeviceType), req.Active, req.UID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type interruptRequest struct {
	ZoneID    int32                `json:"zone_id"`
	Interrupt audio.AudioInterrupt `json:"interrupt"`
}

func (s *server) handleActivateInterrupt(c *gin.Context) {
	var req interruptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.interrupts.ActivateAudioInterrupt(req.ZoneID, &req.Interrupt, false)
	if err == audio.ErrFocusDenied || err == audio.ErrConcedeIncomingStream {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleDeactivateInterrupt(c *gin.Context) {
	var req interruptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.interrupts.DeactivateAudioInterrupt(req.ZoneID, &req.Interrupt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleFocusList(c *gin.Context) {
	zoneID := int64(audio.DefaultZoneID)
	if z := c.Query("zone"); z != "" {
		parsed, err := strconv.ParseInt(z, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone id"})
			return
		}
		zoneID = parsed
	}
	list, err := s.interrupts.GetAudioFocusInfoList(int32(zoneID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone_id": zoneID, "focus_list": list})
}

func (s *server) handleActivateSession(c *gin.Context) {
	var req struct {
		PID      int32                 `json:"pid"`
		Strategy audio.SessionStrategy `json:"strategy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.interrupts.ActivateAudioSession(req.PID, req.Strategy); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleDeactivateSession(c *gin.Context) {
	var req struct {
		PID int32 `json:"pid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.interrupts.DeactivateAudioSession(req.PID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleDump(c *gin.Context) {
	var sb strings.Builder
	s.core.Dump(&sb)
	s.devices.Dump(&sb)
	s.interrupts.Dump(&sb)
	c.String(http.StatusOK, sb.String())
}
