package fulfillment

import (
	"fmt"
	"strings"

	"rostersync/models"
)

const (
	MessageNoTargets          = "⚠️ 対象のユーザーが指定されていません。"
	MessageUnsupportedCommand = "⚠️ このコマンドには対応していません。"
	MessageNotConfigured      = "❌ 名簿の設定が完了していないため更新できませんでした。管理者に連絡してください。"
	MessageTokenFailed        = "❌ 名簿へのアクセス権を取得できませんでした。管理者のログを確認してください。"
	MessageUpdateFailed       = "❌ 名簿の更新に失敗しました。管理者のログを確認してください。"

	// maxMessageLength is the platform's limit for message content, in runes
	maxMessageLength = 2000
)

func missingHeaderMessage(header string) string {
	return fmt.Sprintf("❌ 名簿に「%s」列が見つかりませんでした。", header)
}

// composeReport groups results by status: updated names first, then names not
// found, then ambiguous names with their candidate rows.
func composeReport(columnHeader string, results []models.MatchResult) string {
	var matched, notFound, ambiguous []string
	for _, result := range results {
		switch result.Status {
		case models.MatchStatusMatched:
			matched = append(matched, result.DisplayName)
		case models.MatchStatusNotFound:
			notFound = append(notFound, result.DisplayName)
		case models.MatchStatusAmbiguous:
			ambiguous = append(ambiguous, fmt.Sprintf("%s（候補: %s）", result.DisplayName, strings.Join(result.Candidates, " / ")))
		}
	}

	var lines []string
	if len(matched) > 0 {
		lines = append(lines, fmt.Sprintf("✅ 「%s」を更新しました: %s", columnHeader, strings.Join(matched, "、")))
	} else {
		lines = append(lines, fmt.Sprintf("ℹ️ 「%s」を更新した行はありません。", columnHeader))
	}
	if len(notFound) > 0 {
		lines = append(lines, "⚠️ 名簿に見つかりませんでした: "+strings.Join(notFound, "、"))
	}
	if len(ambiguous) > 0 {
		lines = append(lines, "⚠️ 候補が複数あるため更新しませんでした:")
		for _, entry := range ambiguous {
			lines = append(lines, "・"+entry)
		}
	}

	return truncateMessage(strings.Join(lines, "\n"))
}

func truncateMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= maxMessageLength {
		return content
	}
	return string(runes[:maxMessageLength-1]) + "…"
}
