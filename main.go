package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/companion/config"
)

var (
	configPath string
	envFile    string

	v    = cfg.NewViper()
	conf *cfg.Root
	log  *logrus.Entry
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Routine and mood companion with multimodal emotion fusion",
	Long: `companion tracks self-reported routines and the user's emotional state from
speech and facial expression, and answers chat messages with routine tips,
empathetic replies or meal suggestions.

Services (face, speech, sentiment, asr) and the completion endpoint are configured in
config/<CONFIG_ENV>/config.yaml or config.yaml; COMPANION_* variables override it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "load %s", envFile)
		}
		var paths []string
		if configPath != "" {
			if _, err := os.Stat(configPath); err != nil {
				return errors.Wrap(err, "config")
			}
			paths = []string{configPath}
		}
		c, err := cfg.Load(v, paths...)
		if err != nil {
			return err
		}
		conf = c
		log = newLogger(conf.Pipeline.LogLvl).WithField("app", conf.Pipeline.Name)
		return nil
	},
}

func newLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// bind exposes a flag as a config override under key.
func bind(cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default: probe config/$CONFIG_ENV/config.yaml, config.yaml)")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Bool("no-audio", false, "disable the speech emotion recognizer")
	pf.Bool("no-video", false, "disable the facial emotion recognizer")
	if err := v.BindPFlag("pipeline.log_level", pf.Lookup("log-level")); err != nil {
		panic(err)
	}
	bindNegated("no-audio", "audio.enabled")
	bindNegated("no-video", "video.enabled")

	rootCmd.AddCommand(serveCmd, chatCmd, monitorCmd, devicesCmd)
}

// bindNegated maps a --no-x switch onto a positive enabled key.
func bindNegated(flag, key string) {
	cobra.OnInitialize(func() {
		f := rootCmd.PersistentFlags().Lookup(flag)
		if f != nil && f.Changed {
			v.Set(key, false)
		}
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
