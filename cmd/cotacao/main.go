package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mbrandao/cotacao"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	var (
		envFile  = flag.String("env", "", "arquivo .env a carregar")
		input    = flag.String("input", "", "planilha de pares (.xlsx ou .csv)")
		output   = flag.String("output", "", "arquivo de relatório (.xlsx, .csv ou .json)")
		date     = flag.String("date", "", "data da cotação (DD/MM/AAAA)")
		schedule = flag.String("schedule", "", "expressão cron para execução agendada")
		once     = flag.Bool("once", false, "executa uma vez e sai, sem menu")
		visible  = flag.Bool("visible", false, "abre o navegador visível")
	)
	flag.Parse()

	if *date != "" {
		os.Setenv("COTACAO_DATE", *date)
	}
	cfg, err := cotacao.LoadConfig(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuração: %v\n", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.InputFile = *input
	}
	if *output != "" {
		cfg.OutputFile = *output
	}
	if *schedule != "" {
		cfg.Schedule = *schedule
	}
	if *visible {
		cfg.Headless = false
	}

	logger := buildLogger(cfg.LogFile)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case cfg.Schedule != "":
		runScheduled(ctx, cfg, logger)
	case *once:
		if err := runOnce(ctx, cfg, logger); err != nil {
			logger.Error("execução falhou", zap.Error(err))
			os.Exit(1)
		}
	default:
		runMenu(ctx, cfg, logger)
	}
}

// buildLogger writes the console at info level and, when a log file is
// configured, a rotated debug-level file alongside.
func buildLogger(logFile string) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.InfoLevel),
	}

	if logFile != "" {
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		})
		fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
		cores = append(cores, zapcore.NewCore(fileEncoder, writer, zap.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func runOnce(ctx context.Context, cfg cotacao.Config, logger *zap.Logger) error {
	log := cotacao.NewZapLogger(logger)

	pairs, err := cotacao.LoadOrCreatePairs(cfg.InputFile, false, log)
	if err != nil {
		return err
	}

	extractor := cotacao.NewExtractor(cotacao.BrowserOptions{
		Headless:       cfg.Headless,
		Screenshots:    cfg.Screenshots,
		AttemptTimeout: cfg.AttemptTimeout,
	}, cotacao.DefaultParserConfig(), log)
	extractor.InterPairDelay = cfg.InterPairDelay

	// The PTAX session keeps its cookies across runs, so scheduled
	// executions reuse whatever the service handed out.
	session := cotacao.NewSession("ptax", log)
	if err := session.LoadCookie(); err != nil {
		logger.Warn("cookies não carregados", zap.Error(err))
	} else {
		defer func() {
			if err := session.SaveCookie(); err != nil {
				logger.Warn("cookies não gravados", zap.Error(err))
			}
		}()
	}
	extractor.Session = session

	report, err := extractor.Run(ctx, pairs, cfg.RequestedDate())
	if err != nil {
		return err
	}

	path, err := cotacao.WriteRates(cfg.OutputFile, report, log)
	if err != nil {
		return err
	}
	logger.Info("relatório gravado",
		zap.String("arquivo", path),
		zap.Int("consultas", report.Stats.Total),
		zap.Int("ok", report.Stats.OK))

	if cfg.HistoryFile != "" {
		store, err := cotacao.OpenStore(cfg.HistoryFile)
		if err != nil {
			logger.Warn("histórico indisponível", zap.Error(err))
			return nil
		}
		defer store.Close()
		if err := store.SaveRates(ctx, report); err != nil {
			logger.Warn("falha ao gravar histórico", zap.Error(err))
		}
	}
	return nil
}

func runScheduled(ctx context.Context, cfg cotacao.Config, logger *zap.Logger) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.Schedule, func() {
		if err := runOnce(ctx, cfg, logger); err != nil {
			logger.Error("execução agendada falhou", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("expressão cron inválida",
			zap.String("schedule", cfg.Schedule), zap.Error(err))
	}

	logger.Info("agendador iniciado", zap.String("schedule", cfg.Schedule))
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	logger.Info("agendador encerrado")
}

func runMenu(ctx context.Context, cfg cotacao.Config, logger *zap.Logger) {
	reader := bufio.NewReader(os.Stdin)
	for ctx.Err() == nil {
		fmt.Println()
		fmt.Println("=== Cotações BCB ===")
		fmt.Println("1) Consultar cotações (navegador oculto)")
		fmt.Println("2) Consultar cotações (navegador visível)")
		fmt.Println("3) Consultar com diagnóstico (capturas de tela)")
		fmt.Println("4) Recriar planilha de exemplo")
		fmt.Println("0) Sair")
		fmt.Print("Opção: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		run := cfg
		switch strings.TrimSpace(line) {
		case "1":
			run.Headless = true
		case "2":
			run.Headless = false
		case "3":
			run.Headless = true
			run.Screenshots = true
		case "4":
			if err := cotacao.CreateSamplePairsFile(cfg.InputFile); err != nil {
				logger.Error("falha ao criar exemplo", zap.Error(err))
			} else {
				fmt.Printf("planilha de exemplo criada: %v\n", cfg.InputFile)
			}
			continue
		case "0", "":
			return
		default:
			fmt.Println("opção inválida")
			continue
		}

		if err := runOnce(ctx, run, logger); err != nil {
			logger.Error("execução falhou", zap.Error(err))
		}
	}
}
