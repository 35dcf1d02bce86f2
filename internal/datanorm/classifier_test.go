package datanorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name    string
		sheet   string
		headers []string
		want    SheetKind
	}{
		{"template metrics", "1--过去30天总流水", nil, SheetMetrics},
		{"template targets", "5--本月日均目标流水", nil, SheetTargets},
		{"template rejects", "2--reject规则匹配", nil, SheetRejectRules},
		{"template advertisers", "3--匹配业务负责广告主", nil, SheetAdvertisers},
		{"template events", "4--event事件", nil, SheetEvents},
		{"template blacklist", "6--预算黑名单", nil, SheetBlacklist},
		{"template traffic", "7--流量类型", nil, SheetTrafficTypes},
		{"metrics by header", "Sheet1", []string{"Offer ID", "Time", "Total Revenue"}, SheetMetrics},
		{"events by header", "Sheet2", []string{"Time", "Offer Name", "Event"}, SheetEvents},
		{"rules by header", "Sheet3", []string{"Event", "是否为reject"}, SheetRejectRules},
		{"unknown", "Sheet4", []string{"foo"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.sheet, tt.headers))
		})
	}
}
