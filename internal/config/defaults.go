package config

const (
	defaultDataDir    = "~/.local/share/clipforge"
	defaultStagingDir = "~/.local/share/clipforge/staging"
	defaultOutputDir  = "~/videos/clipforge"
	defaultLogDir     = "~/.local/share/clipforge/logs"

	defaultFPS          = 30
	defaultPreset       = "medium"
	defaultPixelFormat  = "yuv420p"
	defaultVideoBitrate = "6000k"
	defaultAudioBitrate = "192k"
	defaultPaddingColor = "black"

	defaultLoudnessIntegrated = -16.0
	defaultLoudnessTruePeak   = -1.5
	defaultLoudnessRange      = 11.0

	defaultWatermarkPosition = "top-right"
	defaultWatermarkMargin   = 40
	defaultWatermarkOpacity  = 1.0

	defaultMusicVolume = 0.1

	defaultScrapeSource    = "directory"
	defaultMaxClips        = 10
	defaultDownloadTimeout = 60
	defaultDownloadRetries = 3
	defaultRetryDelay      = 2

	defaultFilenameTemplate = "final_20060102_150405.mp4"
	defaultTitleTemplate    = "daily compilation {date}"

	defaultNtfyURL              = "https://ntfy.sh"
	defaultNotifyRequestTimeout = 10

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120

	defaultAPIBind = "127.0.0.1:7619"

	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	defaultBufferLines = 512
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Render: Render{
			Vertical:     true,
			FPS:          defaultFPS,
			Preset:       defaultPreset,
			PixelFormat:  defaultPixelFormat,
			VideoBitrate: defaultVideoBitrate,
			AudioBitrate: defaultAudioBitrate,
			PaddingColor: defaultPaddingColor,
			Watermark: Watermark{
				Position: defaultWatermarkPosition,
				Margin:   defaultWatermarkMargin,
				Opacity:  defaultWatermarkOpacity,
			},
			Music: Music{
				Volume: defaultMusicVolume,
			},
			Loudness: Loudness{
				IntegratedLUFS: defaultLoudnessIntegrated,
				TruePeakDB:     defaultLoudnessTruePeak,
				RangeLU:        defaultLoudnessRange,
			},
		},
		Scrape: Scrape{
			Source:          defaultScrapeSource,
			MaxClips:        defaultMaxClips,
			DownloadTimeout: defaultDownloadTimeout,
			DownloadRetries: defaultDownloadRetries,
			RetryDelay:      defaultRetryDelay,
		},
		Publish: Publish{
			FilenameTemplate: defaultFilenameTemplate,
			TitleTemplate:    defaultTitleTemplate,
		},
		Scheduler: Scheduler{
			Timezone: "Local",
		},
		Notifications: Notifications{
			NtfyURL:        defaultNtfyURL,
			RequestTimeout: defaultNotifyRequestTimeout,
			Queue:          true,
			Render:         true,
			Publish:        true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format:      defaultLogFormat,
			Level:       defaultLogLevel,
			BufferLines: defaultBufferLines,
		},
	}
}
