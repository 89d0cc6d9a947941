package audiopolicy

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/audio"
	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/logging"
)

var logger = logging.GetDefaultLogger().With().Str("component", "audiopolicy").Logger()

var appCtx context.Context

// Main builds the policy service and serves until interrupted.
func Main() {
	LoadConfig()

	var cancel context.CancelFunc
	appCtx, cancel = context.WithCancel(context.Background())
	defer cancel()

	logger.Info().Str("listen_addr", config.ListenAddr).Msg("starting audio policy service")

	clock := clockwork.NewRealClock()
	dispatcher := audio.NewAudioEventDispatcher()
	sessions := audio.NewAudioSessionService(clock, audio.GetConfig().SessionTimeout)
	interrupts := audio.NewAudioInterruptService(audio.DefaultFocusTable(), sessions, dispatcher)

	devices := audio.NewAudioDeviceManager(clock)
	router := audio.NewPriorityRouter(devices)
	pipes := audio.NewAudioPipeManager()
	selector := audio.NewDefaultPipeSelector(pipes)
	active := audio.NewActiveDeviceState(devices.GetRenderDefaultDevice(), devices.GetCaptureDefaultDevice())

	core := audio.NewAudioCoreService(audio.CoreServiceDeps{
		Devices:    devices,
		Router:     router,
		Pipes:      pipes,
		Selector:   selector,
		Hal:        &audio.NoopHalPortController{},
		Bluetooth:  audio.NoopBluetoothAdapter{},
		Interrupts: interrupts,
		Dispatcher: dispatcher,
		Active:     active,
		Clock:      clock,
	})
	core.SetMultichannelSupported(config.MultichannelSupported)

	srv := newServer(serverDeps{
		core:       core,
		interrupts: interrupts,
		devices:    devices,
		pipes:      pipes,
		active:     active,
		dispatcher: dispatcher,
	})
	go func() {
		if err := srv.run(config.ListenAddr); err != nil {
			logger.Error().Err(err).Msg("web server stopped")
			cancel()
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigs:
	case <-appCtx.Done():
	}
	logger.Info().Msg("audio policy service shutting down")
	dispatcher.Close()
}
