package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/eventflow/src/crypto/keys"
	"github.com/mosaicnetworks/eventflow/src/hashgraph"
	"github.com/mosaicnetworks/eventflow/src/peers"
	"github.com/mosaicnetworks/eventflow/src/pipeline"
	"github.com/mosaicnetworks/eventflow/src/signing"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRunCmd returns the command that starts an eventflow node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runEventflow,
	}
	AddRunFlags(cmd)
	return cmd
}

func runEventflow(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	key, err := keys.NewSimpleKeyfile(_config.Keyfile()).ReadKey()
	if err != nil {
		return fmt.Errorf("reading private key: %s", err)
	}
	_config.Key = key

	peerSet, err := peers.NewJSONPeerSet(_config.DataDir).PeerSet()
	if err != nil {
		return fmt.Errorf("reading peers.json: %s", err)
	}
	if peerSet.Len() < 2 {
		return fmt.Errorf("peers.json should define at least two peers")
	}

	p, err := pipeline.NewPipeline(_config, peerSet,
		func(r *hashgraph.ConsensusRound) {
			logger.WithFields(logrus.Fields{
				"round":  r.Round,
				"events": len(r.Events),
			}).Info("round reached consensus")
		},
		func(tx *signing.StateSignatureTransaction) {
			logger.WithField("round", tx.Round).Debug("signed state")
		})
	if err != nil {
		return err
	}

	p.Start()
	logger.Info("pipeline started, waiting for gossip events")

	// The gossip layer is an external collaborator; it feeds events through
	// Pipeline.SubmitEvent. Here we only run the pipeline until a signal.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	logger.Info("shutting down")
	return p.Shutdown()
}

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Duplicate log output to this file")
	cmd.Flags().String("moniker", _config.Moniker, "Optional name")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.DatabaseDir, "Database directory")
	cmd.Flags().Bool("bootstrap", _config.Bootstrap, "Load from database")
	cmd.Flags().Int("cache-size", _config.CacheSize, "Number of items in LRU caches")

	// Pipeline
	cmd.Flags().Int64("intake-capacity", _config.IntakeCapacity, "Max gossip events in flight in the intake stage")
	cmd.Flags().Int("pool-size", _config.PoolSize, "Worker pool size for concurrent schedulers")
	cmd.Flags().Duration("sleep-duration", _config.SleepDuration, "Backoff interval when blocking on backpressure")

	// Consensus
	cmd.Flags().Bool("birth-round-mode", _config.BirthRoundMode, "Use birth rounds instead of generations for ancient thresholds")
	cmd.Flags().Int64("coin-round-freq", _config.CoinRoundFreq, "Coin round frequency in fame elections")
	cmd.Flags().Int64("ancient-round-span", _config.AncientRoundSpan, "Trailing rounds kept non-ancient")
	cmd.Flags().Int64("expired-round-span", _config.ExpiredRoundSpan, "Lag of the expired threshold behind the ancient one")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	// If --datadir was explicitly set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	logFields := logrus.Fields{
		"DataDir":          _config.DataDir,
		"LogLevel":         _config.LogLevel,
		"Moniker":          _config.Moniker,
		"Store":            _config.Store,
		"CacheSize":        _config.CacheSize,
		"IntakeCapacity":   _config.IntakeCapacity,
		"PoolSize":         _config.PoolSize,
		"SleepDuration":    _config.SleepDuration,
		"BirthRoundMode":   _config.BirthRoundMode,
		"CoinRoundFreq":    _config.CoinRoundFreq,
		"AncientRoundSpan": _config.AncientRoundSpan,
		"ExpiredRoundSpan": _config.ExpiredRoundSpan,
	}

	if _config.Store {
		logFields["DatabaseDir"] = _config.DatabaseDir
		logFields["Bootstrap"] = _config.Bootstrap
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all
	// other persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/eventflow.toml (.json, .yaml also work)
	viper.SetConfigName("eventflow")
	viper.AddConfigPath(_config.DataDir)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from the config file
	return viper.Unmarshal(_config)
}
