package main

import (
	"net/http"

	"github.com/markethub/geocurrency/internal/agreements"
	"github.com/markethub/geocurrency/internal/classifier"
	"github.com/markethub/geocurrency/internal/config"
	"github.com/markethub/geocurrency/internal/currency"
	"github.com/markethub/geocurrency/internal/geo"
	"github.com/markethub/geocurrency/internal/handler"
	"github.com/markethub/geocurrency/internal/limiter"
	"github.com/markethub/geocurrency/internal/location"
	"github.com/markethub/geocurrency/internal/logger"
	"github.com/markethub/geocurrency/internal/metrics"
	"github.com/markethub/geocurrency/internal/rates"
	"github.com/markethub/geocurrency/internal/router"
	"github.com/markethub/geocurrency/internal/service"
)

func main() {
	appConfig := config.Load()

	appLogger := setupLogger(appConfig)
	metricsCollector := metrics.New()

	// Durable location cache: Redis when configured, process memory otherwise
	locationCache := setupLocationCache(appConfig, appLogger)
	defer locationCache.Close()

	// The resolution engine
	positionProvider := geo.NewGatewayProvider(
		appConfig.PositionGatewayURL, appConfig.PositionTimeout, metricsCollector, appLogger)
	geocoder := geo.NewMultiGeocoder(
		appConfig.ProviderTimeout, appConfig.GeocoderURLs, metricsCollector, appLogger)
	chain := location.NewFallbackChain(
		locationCache, positionProvider, geocoder,
		appConfig.AnchorCountry, appConfig.LocationCacheTTL, metricsCollector, appLogger)
	rateProvider := rates.NewProvider(
		appConfig.BaseCurrency, appConfig.RateCacheTTL, appConfig.ProviderTimeout,
		appConfig.RateURLs, metricsCollector, appLogger)
	currencyStore := currency.NewStore(chain, rateProvider, appConfig.BaseCurrency, appLogger)

	// Historical agreements for the earnings dashboard
	agreementStore := setupAgreementStore(appConfig, appLogger)
	defer agreementStore.Close()

	anchorCurrency := location.CurrencyFor(appConfig.AnchorCountry).Code
	cls := classifier.New(appConfig.BaseCurrency, anchorCurrency)

	// Build application layers
	currencyService := service.NewCurrencyService(
		currencyStore, rateProvider, agreementStore, cls, metricsCollector, appLogger)
	currencyHandler := handler.NewCurrencyHandler(currencyService)

	rateLimiter := setupRateLimiter(appConfig, appLogger)
	defer rateLimiter.Close()

	appRouter := router.SetupRouter(currencyHandler, rateLimiter, metricsCollector, appLogger)

	startServer(appConfig, appRouter, appLogger)
}

// setupLogger initializes the structured logger
func setupLogger(appConfig *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level:  appConfig.LogLevel,
		Pretty: appConfig.LogPretty,
	})

	appLogger.Info().Msg("Starting geocurrency server...")
	appLogger.Info().
		Str("port", appConfig.Port).
		Str("anchor_country", appConfig.AnchorCountry).
		Str("base_currency", appConfig.BaseCurrency).
		Dur("location_cache_ttl", appConfig.LocationCacheTTL).
		Dur("rate_cache_ttl", appConfig.RateCacheTTL).
		Str("rate_limiter_type", appConfig.RateLimitType).
		Msg("Configuration loaded")

	return appLogger
}

// setupLocationCache picks the durable cache backend
func setupLocationCache(appConfig *config.Config, log *logger.Logger) location.Cache {
	if appConfig.RedisAddr == "" {
		log.Info().Msg("No Redis configured, using in-memory location cache")
		return location.NewMemoryCache()
	}

	cache, err := location.NewRedisCache(appConfig.RedisAddr, appConfig.RedisPassword, appConfig.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis location cache")
	}
	log.Info().Str("addr", appConfig.RedisAddr).Msg("Redis location cache initialized")
	return cache
}

// setupAgreementStore picks the agreement record backend
// MySQL when a DSN is configured; otherwise the CSV export, degrading to
// an empty store so the rest of the service still runs
func setupAgreementStore(appConfig *config.Config, log *logger.Logger) agreements.Store {
	if appConfig.MySQLDSN != "" {
		store, err := agreements.NewMySQLStore(appConfig.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MySQL agreement store")
		}
		log.Info().Msg("MySQL agreement store initialized")
		return store
	}

	store, err := agreements.NewCSVStore(appConfig.AgreementsPath)
	if err != nil {
		log.Warn().Err(err).
			Str("path", appConfig.AgreementsPath).
			Msg("No agreements CSV available, earnings summaries will be empty")
		return agreements.NewMockStore()
	}
	log.Info().Str("path", appConfig.AgreementsPath).Msg("CSV agreement store initialized")
	return store
}

// setupRateLimiter initializes the rate limiter
func setupRateLimiter(appConfig *config.Config, log *logger.Logger) limiter.Limiter {
	effectiveRate := float64(appConfig.RateLimit) / float64(appConfig.RateLimitWindow)

	rateLimiter, err := limiter.New(limiter.Config{
		Type:              appConfig.RateLimitType,
		RequestsPerSecond: effectiveRate,
		RedisAddr:         appConfig.RedisAddr,
		RedisPassword:     appConfig.RedisPassword,
		RedisDB:           appConfig.RedisDB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate limiter")
	}

	log.Info().
		Str("type", appConfig.RateLimitType).
		Float64("requests_per_second", effectiveRate).
		Msg("Rate limiter initialized")

	return rateLimiter
}

// startServer starts the HTTP server and blocks
func startServer(appConfig *config.Config, appRouter http.Handler, log *logger.Logger) {
	serverAddr := ":" + appConfig.Port

	log.Info().
		Str("port", appConfig.Port).
		Str("api_endpoint", "http://localhost:"+appConfig.Port+"/v1/currency").
		Str("health_check", "http://localhost:"+appConfig.Port+"/health").
		Str("metrics", "http://localhost:"+appConfig.Port+"/metrics").
		Msg("Server is running")

	log.Fatal().Err(http.ListenAndServe(serverAddr, appRouter)).Msg("Server failed")
}
