package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kaku/application/commands/bus"
	commandhandlers "kaku/application/commands/handlers"
	"kaku/application/ports"
	querybus "kaku/application/queries/bus"
	queryhandlers "kaku/application/queries/handlers"
	"kaku/application/services"
	"kaku/domain/index"
	"kaku/infrastructure/concurrency"
	"kaku/infrastructure/config"
	"kaku/infrastructure/messaging"
	"kaku/infrastructure/messaging/eventbridge"
	"kaku/infrastructure/persistence/dynamodb"
	"kaku/infrastructure/persistence/memory"
	"kaku/infrastructure/persistence/resilience"
	"kaku/infrastructure/persistence/sqlite"
	"kaku/interfaces/http/rest"
	"kaku/pkg/auth"
	pkgerrors "kaku/pkg/errors"
	"kaku/pkg/observability"
	"kaku/pkg/utils"
)

const serviceName = "kaku"

// ProvideLogLevel parses the configured level. The level is shared with the
// logger so a config reload can change it in place.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	return zap.ParseAtomicLevel(cfg.LogLevel)
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = level
	return zc.Build(zap.Fields(zap.String("service", serviceName)))
}

// AWSClients holds the SDK clients. A client is nil unless a configured
// backend needs it.
type AWSClients struct {
	DynamoDB    *awsdynamodb.Client
	EventBridge *awseventbridge.Client
}

// ProvideAWSClients loads the AWS configuration only when a backend uses it
func ProvideAWSClients(ctx context.Context, cfg *config.Config) (*AWSClients, error) {
	needDynamo := cfg.StoreBackend == config.StoreDynamoDB || cfg.LockBackend == config.LockDynamoDB
	needEvents := cfg.EventBackend == config.EventsEventBridge
	if !needDynamo && !needEvents {
		return &AWSClients{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clients := &AWSClients{}
	if needDynamo {
		clients.DynamoDB = awsdynamodb.NewFromConfig(awsCfg)
	}
	if needEvents {
		clients.EventBridge = awseventbridge.NewFromConfig(awsCfg, func(o *awseventbridge.Options) {
			o.RetryMaxAttempts = 3
			o.RetryMode = aws.RetryModeStandard
		})
	}
	return clients, nil
}

// ProvideCollector creates the metrics collector. It is always populated;
// Config.EnableMetrics only controls whether /metrics is served.
func ProvideCollector() *observability.Collector {
	return observability.NewCollector(serviceName)
}

// ProvideTracing exports spans when tracing is enabled
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing {
		return observability.NoopTracing(), func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush spans", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// Stores groups the repositories of the selected backend
type Stores struct {
	PoIs     ports.PoIRepository
	Projects ports.ProjectRepository
	Scribes  ports.ScribeRepository
	Ping     rest.ReadinessCheck
}

// ProvideStores opens the configured backend. Durable backends are guarded
// by a circuit breaker.
func ProvideStores(cfg *config.Config, clients *AWSClients, collector *observability.Collector, logger *zap.Logger) (*Stores, func(), error) {
	var stores *Stores
	cleanup := func() {}

	switch cfg.StoreBackend {
	case config.StoreMemory:
		return &Stores{
			PoIs:     memory.NewPoIRepository(),
			Projects: memory.NewProjectRepository(),
			Scribes:  memory.NewScribeRepository(),
		}, cleanup, nil

	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}
		stores = &Stores{
			PoIs:     sqlite.NewPoIRepository(store),
			Projects: sqlite.NewProjectRepository(store),
			Scribes:  sqlite.NewScribeRepository(store),
			Ping:     store.Ping,
		}

	case config.StoreDynamoDB:
		stores = &Stores{
			PoIs:     dynamodb.NewPoIRepository(clients.DynamoDB, cfg.DynamoDBTable, logger),
			Projects: dynamodb.NewProjectRepository(clients.DynamoDB, cfg.DynamoDBTable, logger),
			Scribes:  dynamodb.NewScribeRepository(clients.DynamoDB, cfg.DynamoDBTable, logger),
		}

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	breaker := resilience.NewBreaker(resilience.DefaultSettings("store-"+cfg.StoreBackend), collector, logger)
	stores.PoIs = resilience.NewPoIRepository(stores.PoIs, breaker)
	stores.Projects = resilience.NewProjectRepository(stores.Projects, breaker)
	stores.Scribes = resilience.NewScribeRepository(stores.Scribes, breaker)
	return stores, cleanup, nil
}

func ProvidePoIRepository(s *Stores) ports.PoIRepository         { return s.PoIs }
func ProvideProjectRepository(s *Stores) ports.ProjectRepository { return s.Projects }
func ProvideScribeRepository(s *Stores) ports.ScribeRepository   { return s.Scribes }

// ProvideLocker selects the lock backend. The DynamoDB lock is needed when
// several processes share one table.
func ProvideLocker(cfg *config.Config, clients *AWSClients, logger *zap.Logger) ports.Locker {
	if cfg.LockBackend == config.LockDynamoDB {
		return dynamodb.NewDistributedLock(clients.DynamoDB, cfg.DynamoDBTable, cfg.LockLease, logger)
	}
	return concurrency.NewKeyedLocker()
}

// ProvideDispatcher starts the in-process dispatcher. Events are logged and,
// with the eventbridge backend, forwarded to the bus.
func ProvideDispatcher(cfg *config.Config, clients *AWSClients, logger *zap.Logger) (*messaging.Dispatcher, func(), error) {
	d := messaging.NewDispatcher(cfg.EventBuffer, logger)
	d.Subscribe(messaging.LogHandler(logger))
	if cfg.EventBackend == config.EventsEventBridge {
		d.Subscribe(messaging.Forward(eventbridge.NewPublisher(clients.EventBridge, cfg.EventBusName, logger)))
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := d.Close(ctx); err != nil {
			logger.Warn("Event dispatcher did not drain", zap.Error(err))
		}
	}
	return d, cleanup, nil
}

// ProvideEventPublisher exposes the dispatcher to the application layer
func ProvideEventPublisher(d *messaging.Dispatcher) ports.EventPublisher { return d }

func ProvideRegistry() *index.Registry { return index.NewRegistry() }

func ProvideClock() ports.Clock { return utils.Now }

// ProvideSearchSettings seeds the reloadable search defaults
func ProvideSearchSettings(cfg *config.Config) *config.SearchSettings {
	return config.NewSearchSettings(cfg.Search)
}

// ProvideGraphService creates the graph service
func ProvideGraphService(
	pois ports.PoIRepository,
	projects ports.ProjectRepository,
	registry *index.Registry,
	locker ports.Locker,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.GraphService {
	return services.NewGraphService(pois, projects, registry, locker, publisher, logger)
}

// ProvideCommandHandlers creates every command handler
func ProvideCommandHandlers(
	graph *services.GraphService,
	pois ports.PoIRepository,
	projects ports.ProjectRepository,
	scribes ports.ScribeRepository,
	now ports.Clock,
	logger *zap.Logger,
) *commandhandlers.Set {
	return &commandhandlers.Set{
		CreateNote:     commandhandlers.NewCreateNoteHandler(graph, projects, scribes, now, logger),
		CreateThought:  commandhandlers.NewCreateThoughtHandler(graph, pois, projects, scribes, now, logger),
		Scratch:        commandhandlers.NewScratchHandler(graph, pois, now, logger),
		Refute:         commandhandlers.NewRefuteThoughtHandler(graph, pois, now, logger),
		Link:           commandhandlers.NewLinkThoughtHandler(graph, pois, now, logger),
		Tag:            commandhandlers.NewTagPoIHandler(graph, pois, now, logger),
		Categorize:     commandhandlers.NewCategorizePoIHandler(graph, pois, now, logger),
		CreateProject:  commandhandlers.NewCreateProjectHandler(graph, projects, now, logger),
		SetProjectLock: commandhandlers.NewSetProjectLockHandler(graph, projects, now, logger),
		RegisterScribe: commandhandlers.NewRegisterScribeHandler(graph, scribes, now, logger),
	}
}

// ProvideQueryHandlers creates every query handler
func ProvideQueryHandlers(
	graph *services.GraphService,
	pois ports.PoIRepository,
	projects ports.ProjectRepository,
	settings ports.SearchSettings,
	logger *zap.Logger,
) *queryhandlers.Set {
	return &queryhandlers.Set{
		PoIs:     queryhandlers.NewPoIQueryHandler(graph, pois, projects, logger),
		Projects: queryhandlers.NewProjectQueryHandler(graph, projects, logger),
		Search:   queryhandlers.NewSearchPoIsHandler(graph, pois, settings, logger),
	}
}

// busLogger adapts zap to the command bus logger
type busLogger struct {
	s *zap.SugaredLogger
}

func (l busLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l busLogger) Error(msg string, kv ...interface{}) { l.s.Warnw(msg, kv...) }

// ProvideCommandBus creates the command bus with its middleware chain
func ProvideCommandBus(
	set *commandhandlers.Set,
	collector *observability.Collector,
	tracing *observability.TracerProvider,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	b := bus.NewCommandBus(
		bus.TracingMiddleware(tracing.Tracer()),
		bus.MetricsMiddleware(collector),
		bus.LoggingMiddleware(busLogger{s: logger.Sugar()}),
	)
	if err := set.Register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ProvideQueryBus creates the query bus with its middleware chain
func ProvideQueryBus(
	set *queryhandlers.Set,
	collector *observability.Collector,
	tracing *observability.TracerProvider,
) (*querybus.QueryBus, error) {
	b := querybus.NewQueryBus(
		querybus.TracingMiddleware(tracing.Tracer()),
		querybus.MetricsMiddleware(collector),
	)
	if err := set.Register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ProvideErrorHandler exposes error details outside production
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, !cfg.IsProduction())
}

// ProvideTokenValidator returns nil when authentication is disabled
func ProvideTokenValidator(cfg *config.Config) (*auth.Validator, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	return auth.NewValidator(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
}

// ProvideRateLimiter returns nil when no rate is configured
func ProvideRateLimiter(cfg *config.Config) *auth.RateLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	return auth.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

// ProvideRouter builds the HTTP handler
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	collector *observability.Collector,
	validator *auth.Validator,
	limiter *auth.RateLimiter,
	stores *Stores,
	logger *zap.Logger,
) *chi.Mux {
	opts := rest.Options{
		Validator:      validator,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Ready:          stores.Ping,
	}
	if cfg.EnableMetrics {
		opts.Metrics = collector
	}
	return rest.NewRouter(commandBus, queryBus, errs, logger, opts).Setup()
}
