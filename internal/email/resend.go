package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"

	"game-night/internal/models"
)

type ResendService struct {
	apiKey      string
	fromEmail   string
	baseURL     string
	frontendURL string
	clubName    string
}

type EmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type EmailResponse struct {
	ID string `json:"id"`
}

func NewResendService(apiKey, fromEmail, frontendURL, clubName string) *ResendService {
	if clubName == "" {
		clubName = "Game Night"
	}
	return &ResendService{
		apiKey:      apiKey,
		fromEmail:   fromEmail,
		baseURL:     "https://api.resend.com",
		frontendURL: frontendURL,
		clubName:    clubName,
	}
}

func (s *ResendService) SendEmail(to, subject, htmlBody string) error {
	reqBody := EmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequest("POST", s.baseURL+"/emails", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("Email API error: status %d, body: %s", resp.StatusCode, string(body))
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	log.Printf("Email sent successfully to %s", to)
	return nil
}

// SendSessionSummary mails the scored results of a recorded session to a
// club member who opted in.
func (s *ResendService) SendSessionSummary(to, displayName string, session *models.GameSession) error {
	var rows strings.Builder
	results := make([]models.ScoredResult, len(session.Results))
	copy(results, session.Results)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Rank < results[j].Rank
	})

	for _, r := range results {
		name := r.PlayerName
		if name == "" {
			name = "Former member"
		}
		rows.WriteString(fmt.Sprintf(`
            <tr>
                <td style="padding: 8px 16px; color: rgba(255, 255, 255, 0.8);">%d</td>
                <td style="padding: 8px 16px; color: rgba(255, 255, 255, 0.8);">%s</td>
                <td style="padding: 8px 16px; color: rgba(255, 255, 255, 0.8); text-align: right;">%.1f</td>
            </tr>`, r.Rank, html.EscapeString(name), r.PointsEarned))
	}

	leaderboardURL := fmt.Sprintf("%s/leaderboard", s.frontendURL)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #1a1a2e; color: #ffffff; margin: 0; padding: 40px 20px;">
    <div style="max-width: 600px; margin: 0 auto; background: linear-gradient(135deg, #1a1a2e 0%%, #16213e 100%%); border: 1px solid rgba(100, 150, 255, 0.3); border-radius: 16px; padding: 40px;">
        <div style="text-align: center; margin-bottom: 30px;">
            <h1 style="color: #ffffff; margin: 0; font-size: 28px;">🎲 %s 🎲</h1>
        </div>

        <h2 style="color: #ffffff; margin-bottom: 20px;">Session Recorded: %s</h2>

        <p style="color: rgba(255, 255, 255, 0.8); line-height: 1.6;">
            Hi %s,
        </p>

        <p style="color: rgba(255, 255, 255, 0.8); line-height: 1.6;">
            A new %s session with %d players was just recorded. Here are the results:
        </p>

        <table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
            <tr>
                <th style="padding: 8px 16px; text-align: left; color: #ffffff;">Rank</th>
                <th style="padding: 8px 16px; text-align: left; color: #ffffff;">Player</th>
                <th style="padding: 8px 16px; text-align: right; color: #ffffff;">Points</th>
            </tr>%s
        </table>

        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="display: inline-block; background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); color: white; text-decoration: none; padding: 14px 32px; border-radius: 8px; font-weight: 600; font-size: 16px;">View Leaderboard</a>
        </div>

        <hr style="border: none; border-top: 1px solid rgba(255, 255, 255, 0.1); margin: 30px 0;">

        <p style="color: rgba(255, 255, 255, 0.4); font-size: 12px; text-align: center;">
            You are receiving this because you are a member of %s.
        </p>
    </div>
</body>
</html>
`,
		html.EscapeString(s.clubName),
		html.EscapeString(session.GameName),
		html.EscapeString(displayName),
		html.EscapeString(session.GameName),
		session.PlayerCount,
		rows.String(),
		leaderboardURL,
		html.EscapeString(s.clubName),
	)

	subject := fmt.Sprintf("%s results from %s", session.GameName, s.clubName)
	return s.SendEmail(to, subject, htmlBody)
}
