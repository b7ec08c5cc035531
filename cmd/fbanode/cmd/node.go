package cmd

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	logging "github.com/inconshreveable/log15"
	"github.com/mattn/go-isatty"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bosnet-cast/fbanode/cmd/fbanode/common"
	libcommon "github.com/bosnet-cast/fbanode/lib/common"
	nodeerrors "github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/facade"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/transport/wstransport"
)

const defaultPort int = 12345

var (
	nodeCmd *cobra.Command

	flagKPSecretSeed   string
	flagNetworkID      string
	flagPort           int
	flagLogLevel       string
	flagLogOutput      string
	flagMetricsAddr    string
	flagRequestTimeout time.Duration
	flagBallotRetry    time.Duration
	flagThreshold      int
	flagValidators     []string
	flagPeers          []string
)

func init() {
	nodeCmd = &cobra.Command{
		Use:   "start",
		Short: "Run an fbanode",
		Run: func(c *cobra.Command, args []string) {
			if err := runNode(); err != nil {
				common.PrintError(c, err)
			}
		},
	}

	nodeCmd.Flags().StringVar(&flagKPSecretSeed, "secret-seed", common.GetENVValue("FBANODE_SECRET_SEED", ""), "this node's secret seed; a fresh one is generated if omitted")
	nodeCmd.Flags().StringVar(&flagNetworkID, "network-id", common.GetENVValue("FBANODE_NETWORK_ID", ""), "network id mixed into every signature")
	nodeCmd.Flags().IntVar(&flagPort, "port", defaultPort, "port to accept peer/client connections on")
	nodeCmd.Flags().StringVar(&flagLogLevel, "log-level", common.GetENVValue("FBANODE_LOG_LEVEL", "info"), "log level, {crit, error, warn, info, debug}")
	nodeCmd.Flags().StringVar(&flagLogOutput, "log-output", common.GetENVValue("FBANODE_LOG_OUTPUT", ""), "log output file; JSON-formatted if set, otherwise stdout, terminal-formatted on a TTY and logfmt elsewhere")
	nodeCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", common.GetENVValue("FBANODE_METRICS_ADDR", ""), "address to serve /metrics on; disabled if empty")
	nodeCmd.Flags().DurationVar(&flagRequestTimeout, "request-timeout", 2*time.Second, "how long Send waits for externalization")
	nodeCmd.Flags().DurationVar(&flagBallotRetry, "ballot-retry-base", time.Second, "per-retry ballot spacing")
	nodeCmd.Flags().IntVar(&flagThreshold, "threshold", 0, "quorum threshold; defaults to a simple majority of --validator plus self")
	nodeCmd.Flags().StringArrayVar(&flagValidators, "validator", nil, "validator as '<public address>,<dial url>'; repeatable")
	nodeCmd.Flags().StringArrayVar(&flagPeers, "peer", nil, "extra peer to dial at startup with no quorum membership, '<public address>,<dial url>'; repeatable")

	rootCmd.AddCommand(nodeCmd)
}

type validatorFlag struct {
	pk  string
	url string
}

func parseValidatorFlags(raw []string) ([]validatorFlag, error) {
	out := make([]validatorFlag, 0, len(raw))
	for _, v := range raw {
		parts := strings.SplitN(v, ",", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.Errorf("malformed validator %q, want '<public address>,<dial url>'", v)
		}
		out = append(out, validatorFlag{pk: parts[0], url: parts[1]})
	}
	return out, nil
}

func buildLogger() (logging.Logger, error) {
	level, err := logging.LvlFromString(flagLogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "invalid --log-level")
	}

	var handler logging.Handler
	switch {
	case flagLogOutput != "":
		handler, err = logging.FileHandler(flagLogOutput, libcommon.JSONFormat())
		if err != nil {
			return nil, errors.Wrap(err, "invalid --log-output")
		}
	case isatty.IsTerminal(os.Stdout.Fd()):
		handler = libcommon.DefaultLogHandler
	default:
		handler = logging.StreamHandler(os.Stdout, logging.LogfmtFormat())
	}

	log := logging.New(logging.Ctx{"module": "fbanode"})
	libcommon.SetLogging(log, level, handler)
	return log, nil
}

func runNode() error {
	if flagKPSecretSeed == "" {
		kp, err := keypair.Generate(nil)
		if err != nil {
			return errors.Wrap(err, "failed to generate keypair")
		}
		flagKPSecretSeed = kp.Seed()
	}

	parsedKP, err := keypair.Parse(flagKPSecretSeed)
	if err != nil {
		return errors.Wrap(err, "invalid --secret-seed")
	}
	kp, ok := parsedKP.(*keypair.Full)
	if !ok {
		return errors.New("--secret-seed must be a secret seed, not a public address")
	}

	validators, err := parseValidatorFlags(flagValidators)
	if err != nil {
		return errors.Wrap(err, "invalid --validator")
	}
	peers, err := parseValidatorFlags(flagPeers)
	if err != nil {
		return errors.Wrap(err, "invalid --peer")
	}

	threshold := flagThreshold
	if threshold == 0 {
		threshold = (len(validators)+1)/2 + 1
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}
	runID := uuid.New().String()
	log = log.New("run", runID)
	log.Info("starting fbanode", "address", kp.Address(), "port", flagPort, "network-id", flagNetworkID)

	metrics := facade.NewMetrics()

	node := facade.New(kp, wstransport.New(), facade.Config{
		NetworkID:       []byte(flagNetworkID),
		RequestTimeout:  flagRequestTimeout,
		BallotRetryBase: flagBallotRetry,
		Log:             log,
		Metrics:         metrics,
	}, facade.Events{
		PeerOpen:  func(pk, url string) { log.Info("peer connected", "pk", pk, "url", url) },
		PeerClose: func(pk, url string) { log.Info("peer disconnected", "pk", pk, "url", url) },
		PeerError: func(pk, url string, err error) { log.Error("peer connection failed", "pk", pk, "url", url, "err", err) },
	})

	if len(validators) > 0 {
		validatorKeys := make([]string, 0, len(validators)+1)
		validatorKeys = append(validatorKeys, kp.Address())
		for _, v := range validators {
			validatorKeys = append(validatorKeys, v.pk)
		}
		if err := node.Quorums().AddQuorum("main", validatorKeys, threshold); err != nil {
			return errors.Wrap(err, "invalid quorum configuration")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	node.Start(ctx)

	var g run.Group
	{
		listenStop := make(chan struct{})
		g.Add(func() error {
			if err := node.Listen(wstransport.New(), flagPort); err != nil {
				return err
			}
			<-listenStop
			return nil
		}, func(error) {
			close(listenStop)
			node.Stop()
		})
	}
	{
		dialStop := make(chan struct{})
		g.Add(func() error {
			return dialStartupPeers(dialStop, node, append(validators, peers...), log)
		}, func(error) {
			close(dialStop)
		})
	}
	if flagMetricsAddr != "" {
		server := &http.Server{Addr: flagMetricsAddr, Handler: handlers.CombinedLoggingHandler(os.Stdout, promhttp.Handler())}
		g.Add(func() error {
			log.Info("serving metrics", "addr", flagMetricsAddr)
			return server.ListenAndServe()
		}, func(error) {
			server.Close()
		})
	}
	{
		cancelCh := make(chan struct{})
		g.Add(func() error {
			return common.Interrupt(cancelCh)
		}, func(error) {
			close(cancelCh)
		})
	}

	if err := g.Run(); err != nil {
		log.Info("shutting down", "reason", err)
	}
	return nil
}

// dialStartupPeers dials every configured peer concurrently, so a slow
// peer doesn't hold up the rest, and waits for every dial to resolve
// (open or fail) or for stop to close. It then blocks until stop closes
// and always returns nil; individual dial failures are only logged, since
// a node should still start with a partial quorum connected.
func dialStartupPeers(stop <-chan struct{}, node *facade.Node, peers []validatorFlag, log logging.Logger) error {
	var eg errgroup.Group
	for _, p := range peers {
		p := p
		eg.Go(func() error {
			resolved := make(chan *nodeerrors.Error, 1)
			node.PeerConnect(p.url, p.pk, func(err *nodeerrors.Error) { resolved <- err })
			select {
			case err := <-resolved:
				if err != nil {
					log.Error("startup dial failed", "pk", p.pk, "url", p.url, "err", err)
				}
			case <-stop:
			}
			return nil
		})
	}
	eg.Wait()
	<-stop
	return nil
}
