package evaluation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"limp/internal/logger"
	"limp/internal/types"
)

// RenderCharts 把评测指标渲染成一个 HTML 页面：
// 分类型/分层级准确率柱状图 + 混淆矩阵热力图。
func RenderCharts(report Report, outputDir, name string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		accuracyBar(report),
		confusionHeatmap(report),
	)

	path := filepath.Join(outputDir, name+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	logger.Infof("evaluation: report charts written to %s", path)
	return path, nil
}

func accuracyBar(report Report) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Accuracy",
			Subtitle: fmt.Sprintf("overall %.1f%% on %d questions", report.Overall*100, report.Total),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Max: 1, AxisLabel: &opts.AxisLabel{Formatter: "{value}"}}),
	)

	var labels []string
	var values []opts.BarData
	for _, k := range sortedKeys(report.ByType) {
		labels = append(labels, "type:"+k)
		values = append(values, opts.BarData{Value: round2(report.ByType[types.QuestionType(k)])})
	}
	for _, k := range sortedKeys(report.ByLevel) {
		labels = append(labels, "level:"+k)
		values = append(values, opts.BarData{Value: round2(report.ByLevel[types.QuestionLevel(k)])})
	}

	bar.SetXAxis(labels).AddSeries("accuracy", values)
	return bar
}

func confusionHeatmap(report Report) *charts.HeatMap {
	heatmap := charts.NewHeatMap()

	keys := confusionKeys(report.Confusion)
	var data []opts.HeatMapData
	maxCount := 0
	for gi, gold := range keys {
		for pi, pred := range keys {
			count := report.Confusion[gold][pred]
			if count > maxCount {
				maxCount = count
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{pi, gi, count}})
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	heatmap.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Confusion Matrix", Subtitle: "gold answer vs predicted"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: keys, Name: "predicted"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: keys, Name: "gold"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Min: 0,
			Max: float32(maxCount),
		}),
	)
	heatmap.AddSeries("answers", data)
	return heatmap
}

// confusionKeys collects every option key seen on either axis.
func confusionKeys(matrix map[string]map[string]int) []string {
	seen := make(map[string]bool)
	for gold, row := range matrix {
		seen[gold] = true
		for pred := range row {
			if pred != "" {
				seen[pred] = true
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
