package telegram

import (
	"fmt"
	"strings"

	"ssq-predictor/internal/database"
	"ssq-predictor/internal/predictor"
	"ssq-predictor/internal/stats"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeText = `🎱 欢迎使用双色球预测机器人！

🤖 我可以为你提供：
• 📊 最新开奖结果
• 🔮 多方法综合预测
• 📈 冷热号统计
• ✅ 预测批次开奖比对

📝 可用命令：
/latest - 最新开奖与下一期信息
/history - 最近10期开奖
/stats - 近50期号码统计
/predict - 生成10组预测号码
/runs - 最近的预测批次
/help - 帮助信息

⚠️ 机器人仅在私聊中提供服务`

const helpText = `📖 命令说明：

/start - 开始使用
/latest - 最新一期开奖及下一期期号
/history - 最近10期开奖记录
/stats - 近50期红蓝球冷热统计
/predict - 基于全部历史数据生成预测
/runs - 最近10个预测批次
/check <批次ID> - 将预测批次与开奖结果比对
/delete <批次ID> - 删除预测批次

💡 预测结果仅供参考，请理性购彩`

// formatDraw 单期开奖
func formatDraw(r database.DrawRecord) string {
	return fmt.Sprintf("第`%s`期 %s\n🔴 `%s`  🔵 `%02d`\n和值 %d | 奇偶 %d:%d | 大小 %d:%d",
		r.Issue, r.DrawDate.Format(database.DateLayout),
		database.FormatNumbers(r.Primary, " "), r.Secondary,
		r.Sum, r.OddCount, database.PrimaryCount-r.OddCount,
		database.PrimaryCount-r.HighCount, r.HighCount)
}

// formatLatestMessage 最新开奖与下一期信息
func formatLatestMessage(latest *database.DrawRecord, next predictor.DrawSchedule) string {
	var builder strings.Builder

	builder.WriteString("📊 *最新开奖*\n\n")
	if latest == nil {
		builder.WriteString("暂无开奖数据\n")
	} else {
		builder.WriteString(formatDraw(*latest))
		builder.WriteString("\n")
	}

	builder.WriteString(fmt.Sprintf("\n⏰ *下一期*: 第`%s`期 %s（%s）21:15",
		next.Issue, next.Date.Format(database.DateLayout), next.Weekday()))
	return builder.String()
}

// formatHistoryMessage 最近开奖记录，最新的在最下面
func formatHistoryMessage(records []database.DrawRecord) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("📊 *最近%d期开奖*\n\n", len(records)))
	if len(records) == 0 {
		builder.WriteString("暂无开奖数据")
		return builder.String()
	}

	for _, r := range records {
		builder.WriteString(fmt.Sprintf("`%s` %s | %02d\n", r.Issue, database.FormatNumbers(r.Primary, " "), r.Secondary))
	}
	return builder.String()
}

// formatStatsMessage 窗口统计
func formatStatsMessage(s stats.WindowSummary) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("📈 *近%d期统计*", s.Window))
	if s.Window == 0 {
		builder.WriteString("\n\n暂无开奖数据")
		return builder.String()
	}
	builder.WriteString(fmt.Sprintf("（%s - %s）\n\n", s.FirstIssue, s.LastIssue))

	builder.WriteString(fmt.Sprintf("🔥 热号: `%s`\n", formatWithCount(s.Hot, s.PrimaryFreq)))
	builder.WriteString(fmt.Sprintf("❄️ 冷号: `%s`\n", formatWithCount(s.Cold, s.PrimaryFreq)))

	topBlue := s.SecondaryRanking
	if len(topBlue) > 5 {
		topBlue = topBlue[:5]
	}
	builder.WriteString(fmt.Sprintf("🔵 蓝球热号: `%s`\n\n", formatWithCount(topBlue, s.SecondaryFreq)))

	builder.WriteString(fmt.Sprintf("奇偶比 %d:%d | 大小比 %d:%d\n", s.OddTotal, s.EvenTotal, s.SmallTotal, s.BigTotal))
	builder.WriteString(fmt.Sprintf("和值 %d-%d，均值 %.1f", s.SumMin, s.SumMax, s.SumMean))
	return builder.String()
}

func formatWithCount(nums []int, freq stats.FrequencyMap) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%02d(%d)", n, freq[n])
	}
	return strings.Join(parts, " ")
}

// formatPredictionMessage 预测批次结果
func formatPredictionMessage(run *database.PredictionRun, p *predictor.Prediction) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("🔮 *第%s期预测*（%s 开奖）\n\n", run.TargetIssue, run.TargetDate.Format(database.DateLayout)))
	for i, t := range run.Tuples {
		builder.WriteString(fmt.Sprintf("*%d.* `%s | %02d` %d%% %s\n",
			i+1, database.FormatNumbers(t.Primary, " "), t.Secondary, t.Confidence, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, t.Strategy)))
	}

	if p != nil {
		builder.WriteString(fmt.Sprintf("\n🔵 蓝球推荐: `%s`\n", database.FormatNumbers(p.Secondary.Ranked, " ")))
		if len(p.Secondary.Exclusion.Strong) > 0 {
			builder.WriteString(fmt.Sprintf("🚫 强排除: `%s`\n", database.FormatNumbers(p.Secondary.Exclusion.Strong, " ")))
		}
		builder.WriteString(fmt.Sprintf("🧮 参与方法 %d 个", len(p.Methods)))
		if len(p.Failed) > 0 {
			builder.WriteString(fmt.Sprintf("，失败 %d 个", len(p.Failed)))
		}
		if p.Suggested > 0 {
			builder.WriteString(fmt.Sprintf("，外部建议 %d 组", p.Suggested))
		}
		builder.WriteString("\n")
	}
	if len(run.Tuples) < 10 {
		builder.WriteString(fmt.Sprintf("⚠️ 仅生成 %d 组不重复号码\n", len(run.Tuples)))
	}

	builder.WriteString(fmt.Sprintf("\n批次ID: `%s`\n💡 预测结果仅供参考，请理性购彩", run.ID))
	return builder.String()
}

// formatRunsMessage 预测批次列表
func formatRunsMessage(runs []database.PredictionRun) string {
	var builder strings.Builder

	builder.WriteString("📋 *最近预测批次*\n\n")
	if len(runs) == 0 {
		builder.WriteString("暂无预测批次")
		return builder.String()
	}

	for _, run := range runs {
		builder.WriteString(fmt.Sprintf("`%s`\n   第%s期 | %d组 | %s\n",
			run.ID, run.TargetIssue, len(run.Tuples), run.CreatedAt.Format("01-02 15:04")))
	}
	builder.WriteString("\n发送 /check <批次ID> 比对开奖结果")
	return builder.String()
}

// formatScoreMessage 开奖比对结果
func formatScoreMessage(score *predictor.RunScore) string {
	var builder strings.Builder

	builder.WriteString("✅ *开奖比对*\n\n")
	builder.WriteString(formatDraw(score.Actual))
	builder.WriteString("\n\n")

	for i, ts := range score.Scores {
		tier := "未中奖"
		if ts.Tier > 0 {
			tier = fmt.Sprintf("%d等奖 🎉", ts.Tier)
		}
		builder.WriteString(fmt.Sprintf("*%d.* `%s | %02d` %s %s\n",
			i+1, database.FormatNumbers(ts.Tuple.Primary, " "), ts.Tuple.Secondary, ts.HitsLabel(), tier))
	}

	builder.WriteString("\n")
	builder.WriteString(score.Summary())
	return builder.String()
}

// CreateInlineKeyboard 创建内联键盘
func CreateInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 最新开奖", "latest"),
			tgbotapi.NewInlineKeyboardButtonData("📈 号码统计", "stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔮 生成预测", "predict"),
			tgbotapi.NewInlineKeyboardButtonData("📋 预测批次", "runs"),
		),
	)
}
