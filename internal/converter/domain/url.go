package domain

import "regexp"

// 已知的 YouTube URL 形態。identifier 固定為 11 碼 video ID。
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:\?|&)v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/live/([A-Za-z0-9_-]{11})`),
}

// VideoIDFromURL 從來源 URL 取出穩定的 video identifier。
// 取不出時回傳 ErrInvalidURL，呼叫端不得入列。
func VideoIDFromURL(url string) (string, error) {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", ErrInvalidURL
}
