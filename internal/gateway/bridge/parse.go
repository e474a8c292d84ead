package bridge

import (
	"bytes"
	"strings"

	"propguard/internal/pkg/convert"

	"github.com/tidwall/gjson"
)

// Bridge deployments wrap their payloads inconsistently: some return a
// bare array, others an envelope keyed "results"/"accounts"/"data". The
// parsers below accept any of them so a vendor upgrade does not break the
// sweep.

func parseBulkResults(raw []byte) ([]BulkCheckResult, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, &TransportError{Op: "parse check-bulk", Body: excerpt(body)}
	}
	arr := gjson.ParseBytes(body)
	if !arr.IsArray() {
		arr = firstArray(body, "results", "accounts", "data", "items")
	}
	if !arr.Exists() {
		return nil, nil
	}
	var out []BulkCheckResult
	arr.ForEach(func(_, item gjson.Result) bool {
		out = append(out, BulkCheckResult{
			Login:   convert.ToInt64(item.Get("login").Value()),
			Equity:  convert.ToFloat64(item.Get("equity").Value()),
			Balance: convert.ToFloat64(item.Get("balance").Value()),
		})
		return true
	})
	return out, nil
}

func parseTrades(raw []byte) ([]RawTrade, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, &TransportError{Op: "parse trades", Body: excerpt(body)}
	}
	arr := gjson.ParseBytes(body)
	if !arr.IsArray() {
		arr = firstArray(body, "trades", "data", "result", "items")
	}
	if !arr.Exists() {
		return nil, nil
	}
	var out []RawTrade
	arr.ForEach(func(_, item gjson.Result) bool {
		out = append(out, RawTrade{
			Ticket:     convert.ToInt64(item.Get("ticket").Value()),
			Symbol:     strings.ToUpper(strings.TrimSpace(item.Get("symbol").String())),
			Type:       int(convert.ToInt64(item.Get("type").Value())),
			Volume:     convert.ToFloat64(item.Get("volume").Value()),
			Price:      convert.ToFloat64(item.Get("price").Value()),
			ClosePrice: convert.ToFloat64(item.Get("close_price").Value()),
			Profit:     convert.ToFloat64(item.Get("profit").Value()),
			Commission: convert.ToFloat64(item.Get("commission").Value()),
			Swap:       convert.ToFloat64(item.Get("swap").Value()),
			Time:       convert.ToInt64(item.Get("time").Value()),
			CloseTime:  convert.ToInt64(item.Get("close_time").Value()),
		})
		return true
	})
	return out, nil
}

func firstArray(body []byte, keys ...string) gjson.Result {
	for _, key := range keys {
		if res := gjson.GetBytes(body, key); res.IsArray() {
			return res
		}
	}
	return gjson.Result{}
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return "malformed payload: " + s
}
