package suggest

import (
	"fmt"
	"strings"

	"ssq-predictor/internal/database"
	"ssq-predictor/internal/predictor"
)

// BuildPrompt 构建建议服务提示词
func BuildPrompt(sc predictor.SuggestContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "请根据以下信息生成%d组双色球预测号码。\n\n", sc.Count)

	b.WriteString("## 当前信息\n")
	fmt.Fprintf(&b, "- 预测期号：%s\n", sc.Target.Issue)
	fmt.Fprintf(&b, "- 开奖日期：%s（%s）\n", sc.Target.Date.Format(database.DateLayout), sc.Target.Weekday())
	fmt.Fprintf(&b, "- 当前月份：%d月\n\n", int(sc.Now.Month()))

	b.WriteString("## 上期开奖\n")
	fmt.Fprintf(&b, "- 期号：%s\n", sc.Last.Issue)
	fmt.Fprintf(&b, "- 红球：%s\n", joinNumbers(sc.Last.Primary))
	fmt.Fprintf(&b, "- 蓝球：%d\n\n", sc.Last.Secondary)

	b.WriteString("## 各方法预测结果\n")
	for _, m := range sc.Methods {
		fmt.Fprintf(&b, "【%s】\n红球推荐: %s\n蓝球推荐: %s\n%s\n\n",
			m.Name, joinNumbers(m.Primary), joinNumbers(m.Secondary), m.Rationale)
	}

	b.WriteString("## 统计信息\n")
	fmt.Fprintf(&b, "- 红球热号(最近50期出现≥10次)：%s\n", joinNumbers(sc.HotPrimary))
	fmt.Fprintf(&b, "- 红球冷号(最近50期出现≤4次)：%s\n", joinNumbers(sc.ColdPrimary))
	fmt.Fprintf(&b, "- 蓝球热号：%s\n", joinNumbers(sc.HotSecondary))
	fmt.Fprintf(&b, "- 蓝球综合推荐：%s\n", joinNumbers(sc.Secondary))
	fmt.Fprintf(&b, "- 常见和值范围：%d-%d\n\n", sc.SumMin, sc.SumMax)

	b.WriteString("## 任务\n")
	b.WriteString("1. 综合分析各方法的预测结果\n")
	fmt.Fprintf(&b, "2. 生成%d组预测号码\n", sc.Count)
	b.WriteString("3. 每组包含：6个红球(1-33) + 1个蓝球(1-16)\n")
	b.WriteString("4. 红球必须升序排列，不能重复\n")
	b.WriteString("5. 各组号码不能完全相同\n\n")

	b.WriteString("## 分配策略\n")
	b.WriteString("- 第1-3组：高置信推荐（多方法交集，共识度高），置信度85-95\n")
	b.WriteString("- 第4-6组：平衡策略（热码+温码+冷码搭配），置信度75-85\n")
	b.WriteString("- 第7-8组：趋势追踪（基于近期走势），置信度65-75\n")
	b.WriteString("- 第9-10组：探索预测（冷号反弹、特殊模式），置信度55-65\n\n")

	b.WriteString("## 输出格式\n")
	b.WriteString("请直接输出JSON格式，不要包含其他文字：\n")
	b.WriteString(`{"predictions":[{"red":[1,5,12,18,25,33],"blue":7,"confidence":92,"strategy":"综合热码+分布规律"}]}`)
	return b.String()
}

func joinNumbers(nums []int) string {
	if len(nums) == 0 {
		return "无"
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
