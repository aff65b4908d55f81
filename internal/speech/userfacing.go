package speech

import "strings"

// UserFacingMessage translates an internal error into a short, non-technical
// Japanese message for the chat feedback line. The mapping is total: every
// input yields some message, and raw API text never passes through.
func UserFacingMessage(err error) string {
	if err == nil {
		return "音声の処理が完了しました"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate_limited"), strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "quota"):
		return "音声認識サービスの利用制限に達しました。しばらく待ってからもう一度お試しください"
	case strings.Contains(msg, "bad_request"), strings.Contains(msg, "400"), strings.Contains(msg, "invalid"), strings.Contains(msg, "unsupported"):
		return "音声ファイルの形式に問題があり、文字起こしできませんでした"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "音声認識サービスの応答がタイムアウトしました"
	case strings.Contains(msg, "status 5"), strings.Contains(msg, "server"), strings.Contains(msg, "retryable"):
		return "音声認識サービスで一時的なエラーが発生しました"
	default:
		return "音声の文字起こし中にエラーが発生しました"
	}
}
