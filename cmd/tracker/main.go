package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"AmazonTracker/internal/config"
	"AmazonTracker/internal/notifier"
	"AmazonTracker/internal/pricing"
	"AmazonTracker/internal/recorder"
	"AmazonTracker/internal/runner"
	"AmazonTracker/internal/scheduler"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	check := flag.Bool("check", false, "run one check pass over all tracked products")
	addASIN := flag.String("add", "", "ASIN of a product to add to the tracked set")
	watch := flag.Bool("watch", false, "run continuously on the configured cron schedule")
	flag.Parse()

	_ = godotenv.Load() // load .env if present; not fatal if missing

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init pricing fetcher
	fetcher := pricing.NewPAAPIFetcher(
		cfg.PAAPI.AccessKey, cfg.PAAPI.SecretKey,
		cfg.PAAPI.PartnerTag, cfg.PAAPI.Marketplace, cfg.Proxy)
	log.Printf("[INFO] pricing source: %s (%s)", fetcher.Name(), cfg.PAAPI.Marketplace)

	// Init Twitter notifier
	tn := notifier.NewTwitterNotifier(
		cfg.Twitter.ConsumerKey, cfg.Twitter.ConsumerSecret,
		cfg.Twitter.AccessToken, cfg.Twitter.AccessTokenSecret, cfg.Proxy)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Post templates
	templates, err := notifier.LoadTemplates(cfg.Tracker.TemplatesFile)
	if err != nil {
		log.Printf("[WARN] load templates: %v, using defaults", err)
		templates = notifier.DefaultTemplates()
	}

	r := runner.New(fetcher, tn, rec, cfg.Tracker.StateFile)
	r.Templates = templates
	r.PartnerTag = cfg.PAAPI.PartnerTag
	r.Marketplace = cfg.PAAPI.Marketplace

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch {
	case *addASIN != "":
		if err := r.Add(ctx, *addASIN); err != nil {
			log.Fatalf("[FATAL] add product: %v", err)
		}

	case *check:
		if err := r.Check(ctx); err != nil {
			log.Fatalf("[FATAL] check run: %v", err)
		}

	case *watch:
		sched := scheduler.New(ctx, r)
		if err := sched.Register(cfg.Schedule.CheckCron); err != nil {
			log.Fatalf("[FATAL] register cron task: %v", err)
		}
		sched.Start()
		defer sched.Stop()

		if os.Getenv("RUN_ON_START") == "true" {
			log.Println("[INFO] RUN_ON_START enabled, executing check now")
			go sched.RunNow()
		}

		log.Println("[INFO] tracker is running. Press Ctrl+C to stop.")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("[INFO] shutdown signal received, stopping...")
		cancel()

	default:
		flag.Usage()
		os.Exit(2)
	}
}
