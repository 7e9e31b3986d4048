package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ssq-predictor/internal/config"
	"ssq-predictor/internal/database"
	"ssq-predictor/internal/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
	runsLimit  int
	syncFirst  bool

	rootCmd = &cobra.Command{
		Use:           "ssq-predictor",
		Short:         "双色球历史数据同步与多方法号码预测",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			logger.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "常驻运行：定时同步开奖数据、清理过期批次、启动机器人",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	predictCmd = &cobra.Command{
		Use:   "predict",
		Short: "基于全部历史数据生成一个预测批次",
		Args:  cobra.NoArgs,
		RunE:  runPredict,
	}

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "从数据源同步开奖记录",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}

	nextCmd = &cobra.Command{
		Use:   "next",
		Short: "显示下一期期号与开奖日期",
		Args:  cobra.NoArgs,
		RunE:  runNext,
	}

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "管理预测批次",
	}

	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "列出最近的预测批次",
		Args:  cobra.NoArgs,
		RunE:  runRunsList,
	}

	runsDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "删除预测批次",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsDelete,
	}

	runsCheckCmd = &cobra.Command{
		Use:   "check <id>",
		Short: "将预测批次与目标期开奖结果比对",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsCheck,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "配置文件路径")
	predictCmd.Flags().BoolVar(&syncFirst, "sync", false, "预测前先同步开奖数据")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "显示数量")

	runsCmd.AddCommand(runsListCmd, runsDeleteCmd, runsCheckCmd)
	rootCmd.AddCommand(serveCmd, predictCmd, syncCmd, nextCmd, runsCmd)
}

// withApp 创建应用并在命令结束后释放资源
func withApp(fn func(app *App) error) error {
	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// signalContext 收到中断信号时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 启动双色球预测服务...")
	app, err := NewApp(cfg)
	if err != nil {
		return fmt.Errorf("应用初始化失败: %w", err)
	}
	fmt.Println("🎯 应用程序初始化完成")

	if err := app.Start(); err != nil {
		app.Close()
		return fmt.Errorf("应用启动失败: %w", err)
	}

	// 等待停止信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	app.Stop()
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	return withApp(func(app *App) error {
		ctx, cancel := signalContext()
		defer cancel()

		added, err := app.syncDraws(ctx)
		if err != nil {
			return err
		}
		total, err := app.cacheManager.CountDraws()
		if err != nil {
			return err
		}
		fmt.Printf("✅ 同步完成：新增 %d 期，共 %d 期\n", added, total)
		return nil
	})
}

func runPredict(cmd *cobra.Command, args []string) error {
	return withApp(func(app *App) error {
		ctx, cancel := signalContext()
		defer cancel()

		if syncFirst {
			added, err := app.syncDraws(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("📚 新增 %d 期开奖\n", added)
		}

		run, prediction, err := app.service.Predict(ctx, func(status string) {
			fmt.Printf("⏳ %s\n", status)
		})
		if err != nil {
			return err
		}
		printRun(run)
		if len(prediction.Failed) > 0 {
			fmt.Printf("⚠️  %d 个分析方法失败\n", len(prediction.Failed))
		}
		fmt.Printf("🔵 蓝球推荐: %s\n", database.FormatNumbers(prediction.Secondary.Ranked, " "))
		return nil
	})
}

func runNext(cmd *cobra.Command, args []string) error {
	return withApp(func(app *App) error {
		next, err := app.service.NextDraw()
		if err != nil {
			return err
		}
		fmt.Printf("⏰ 下一期: %s  %s（%s）\n", next.Issue, next.Date.Format(database.DateLayout), next.Weekday())
		return nil
	})
}

func runRunsList(cmd *cobra.Command, args []string) error {
	return withApp(func(app *App) error {
		runs, err := app.service.ListRuns(runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("暂无预测批次")
			return nil
		}
		for _, run := range runs {
			fmt.Printf("%s  第%s期  %d组  %s\n", run.ID, run.TargetIssue, len(run.Tuples), run.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	})
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	return withApp(func(app *App) error {
		if err := app.service.DeleteRun(args[0]); err != nil {
			return err
		}
		fmt.Printf("🗑 已删除预测批次 %s\n", args[0])
		return nil
	})
}

func runRunsCheck(cmd *cobra.Command, args []string) error {
	return withApp(func(app *App) error {
		score, err := app.service.Check(args[0])
		if err != nil {
			return err
		}
		for i, ts := range score.Scores {
			tier := "未中奖"
			if ts.Tier > 0 {
				tier = fmt.Sprintf("%d等奖", ts.Tier)
			}
			fmt.Printf("%2d. %s | %02d  %s  %s\n", i+1, database.FormatNumbers(ts.Tuple.Primary, " "), ts.Tuple.Secondary, ts.HitsLabel(), tier)
		}
		fmt.Println(score.Summary())
		return nil
	})
}

func printRun(run *database.PredictionRun) {
	fmt.Printf("\n🔮 第%s期预测（%s 开奖）批次 %s\n", run.TargetIssue, run.TargetDate.Format(database.DateLayout), run.ID)
	for i, t := range run.Tuples {
		fmt.Printf("%2d. %s | %02d  %3d%%  %s\n", i+1, database.FormatNumbers(t.Primary, " "), t.Secondary, t.Confidence, t.Strategy)
	}
	if len(run.Tuples) < cfg.Engine.TargetCount {
		fmt.Printf("⚠️  仅生成 %d 组不重复号码\n", len(run.Tuples))
	}
}
