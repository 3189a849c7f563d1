// Package scoring 报价加权评分与排名引擎：纯函数、无状态、可重复调用
package scoring

import (
	"math"
	"sort"
)

// Weights 原始权重，不要求总和为1
type Weights struct {
	Price    float64 `json:"price"`
	Delivery float64 `json:"delivery"`
	Quality  float64 `json:"quality"`
}

// Normalize 按总和归一化；总和<=0时按1处理，避免除零（此时所有总分为0）
func (w Weights) Normalize() Weights {
	sum := w.Price + w.Delivery + w.Quality
	if sum <= 0 {
		sum = 1
	}
	return Weights{
		Price:    w.Price / sum,
		Delivery: w.Delivery / sum,
		Quality:  w.Quality / sum,
	}
}

// Input 单个报价的原始子分（引擎会截断到[0,10]）
type Input struct {
	OfferID  string
	Price    float64
	Delivery float64
	Quality  float64
}

// Scored 单个报价的评分结果
type Scored struct {
	OfferID  string
	Price    float64 // 截断后的子分
	Delivery float64
	Quality  float64
	Total    float64 // 全精度，内存排名用
	Rounded  float64 // 4位小数，持久化用
	Rank     int     // 1起，按Total降序；并列保持提交顺序
}

// Clamp 子分截断到[0,10]；NaN按0处理。超范围是输入整形，不是错误
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// Round4 四舍五入到4位小数
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Score 计算每个报价的加权总分并产出稳定排名。
// 输入顺序即提交顺序；总分相等的报价保持原顺序。
func Score(w Weights, inputs []Input) []Scored {
	nw := w.Normalize()

	out := make([]Scored, 0, len(inputs))
	for _, in := range inputs {
		sp := Clamp(in.Price)
		sd := Clamp(in.Delivery)
		sq := Clamp(in.Quality)
		total := sp*nw.Price + sd*nw.Delivery + sq*nw.Quality
		out = append(out, Scored{
			OfferID:  in.OfferID,
			Price:    sp,
			Delivery: sd,
			Quality:  sq,
			Total:    total,
			Rounded:  Round4(total),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
