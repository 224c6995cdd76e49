package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Victorugws/swift/internal/config"
	speechmodel "github.com/Victorugws/swift/internal/model/speech"
	"github.com/Victorugws/swift/internal/service/speech"
)

type configLoader func() (*config.Config, zerolog.Logger, error)

func newTranscribeCmd(withTimeout func(*cobra.Command) (context.Context, context.CancelFunc), load configLoader) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Run the configured STT provider on a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}

			recognizer, err := speech.NewRecognizer(cfg.Speech.ToModel(), logger)
			if err != nil {
				return err
			}

			audio, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("打开音频文件失败: %w", err)
			}

			format := strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), ".")
			if language == "" {
				language = cfg.Speech.ASRLanguage
			}

			ctx, cancel := withTimeout(cmd)
			defer cancel()

			req := &speechmodel.ASRRequest{
				RequestID: uuid.NewString(),
				Audio:     audio,
				Filename:  filepath.Base(args[0]),
				Format:    format,
				Language:  language,
			}
			logger.Info().
				Str("provider", cfg.Speech.STTProvider).
				Str("request_id", req.RequestID).
				Str("format", format).
				Msg("开始进行 ASR 测试")

			start := time.Now()
			resp, err := recognizer.Recognize(ctx, req)
			if err != nil {
				return fmt.Errorf("ASR 调用失败: %w", err)
			}

			logger.Info().
				Str("text", resp.Text).
				Int64("duration_ms", resp.Duration).
				Dur("elapsed", time.Since(start)).
				Msg("ASR 识别成功")
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "lang", "", "language code (default SPEECH_ASR_LANGUAGE)")
	return cmd
}

func newSynthesizeCmd(withTimeout func(*cobra.Command) (context.Context, context.CancelFunc), load configLoader) *cobra.Command {
	var voice, out string

	cmd := &cobra.Command{
		Use:   "synthesize <text>",
		Short: "Synthesize text with Cartesia into raw f32le PCM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" {
				return fmt.Errorf("TTS 需要非空文本")
			}

			cfg, logger, err := load()
			if err != nil {
				return err
			}

			synthesizer, err := speech.NewCartesiaSynthesizer(cfg.Speech.ToModel(), logger)
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("tts-output-%d.pcm", time.Now().Unix())
			}

			ctx, cancel := withTimeout(cmd)
			defer cancel()

			start := time.Now()
			audio, err := synthesizer.Synthesize(ctx, speechmodel.TTSRequest{
				Text:    args[0],
				VoiceID: voice,
				Format:  speechmodel.RawPCMFloat32,
			})
			if err != nil {
				return fmt.Errorf("TTS 调用失败: %w", err)
			}
			defer audio.Close()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := io.Copy(f, audio)
			if err != nil {
				return fmt.Errorf("写入音频文件失败: %w", err)
			}

			logger.Info().
				Str("file", out).
				Int64("bytes", n).
				Dur("elapsed", time.Since(start)).
				Msg("TTS 合成成功")
			return nil
		},
	}
	cmd.Flags().StringVar(&voice, "voice", "", "Cartesia voice id (default CARTESIA_VOICE_ID)")
	cmd.Flags().StringVar(&out, "out", "", "output file (default tts-output-<unix>.pcm)")
	return cmd
}
