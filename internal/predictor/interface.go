package predictor

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"ssq-predictor/internal/database"
)

var errNoRecords = errors.New("no draw records")

// MethodResult 单个红球方法的输出
type MethodResult struct {
	Method    string `json:"method"`
	Name      string `json:"name"`
	Primary   []int  `json:"primary"`   // 6个，升序
	Secondary []int  `json:"secondary"` // 推荐蓝球，优先级从高到低
	Rationale string `json:"rationale"`
}

// Input 方法输入：按期号升序的历史记录、当前时间与随机源
type Input struct {
	Records []database.DrawRecord
	Now     time.Time
	Rng     *rand.Rand
}

// last 上一期开奖
func (in Input) last() database.DrawRecord {
	return in.Records[len(in.Records)-1]
}

// PrimaryMethod 红球方法
type PrimaryMethod struct {
	ID   string
	Name string
	Run  func(Input) (MethodResult, error)
}

// PrimaryMethods 六种红球方法
var PrimaryMethods = []PrimaryMethod{
	{ID: "decision-tree", Name: "高级特征决策树法", Run: decisionTree},
	{ID: "sum-tail", Name: "和值除数取尾定胆法", Run: sumTail},
	{ID: "zone-distribution", Name: "分布图法", Run: zoneDistribution},
	{ID: "mod3", Name: "除3余数杀号法", Run: mod3Residue},
	{ID: "hot-cold-warm", Name: "热冷温码法", Run: hotColdWarm},
	{ID: "size-parity", Name: "大小奇偶法", Run: sizeParity},
}

// MethodOutcome 方法执行结果：成功时 Err 为 nil
type MethodOutcome struct {
	Method string
	Result MethodResult
	Err    error
}

// OK 是否成功
func (o MethodOutcome) OK() bool {
	return o.Err == nil
}

// RunMethod 执行单个方法，panic 转为错误
func RunMethod(m PrimaryMethod, in Input) (outcome MethodOutcome) {
	outcome.Method = m.ID
	defer func() {
		if r := recover(); r != nil {
			outcome.Err = fmt.Errorf("method %s panicked: %v", m.ID, r)
		}
	}()

	if len(in.Records) == 0 {
		outcome.Err = errNoRecords
		return outcome
	}

	result, err := m.Run(in)
	if err != nil {
		outcome.Err = fmt.Errorf("method %s: %w", m.ID, err)
		return outcome
	}
	result.Method = m.ID
	result.Name = m.Name
	if len(result.Primary) != database.PrimaryCount {
		outcome.Err = fmt.Errorf("method %s produced %d primary numbers", m.ID, len(result.Primary))
		return outcome
	}
	outcome.Result = result
	return outcome
}

// Successful 过滤出成功的方法结果
func Successful(outcomes []MethodOutcome) []MethodResult {
	results := make([]MethodResult, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			results = append(results, o.Result)
		}
	}
	return results
}
