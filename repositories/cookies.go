package repositories

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"amplify-bot/domain"
)

// ParseCookieFile reads a tab-separated cookie export. Each row is
// name, value, domain[, path][, flags...][, sameSite]. Lines starting with
// // and blank lines are skipped, as are rows with fewer than 3 fields.
// The session cannot exist without credentials, so an unreadable file is
// an error for the caller to treat as fatal.
func ParseCookieFile(path string) ([]domain.Cookie, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie file %s: %w", path, err)
	}
	defer file.Close()

	var cookies []domain.Cookie
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}

		cookie := domain.Cookie{
			Name:   parts[0],
			Value:  parts[1],
			Domain: parts[2],
		}
		if len(parts) > 3 {
			cookie.Path = parts[3]
		}
		if len(parts) > 5 && strings.Contains(parts[5], "✓") {
			cookie.Secure = true
		}
		if len(parts) > 6 && strings.Contains(parts[6], "✓") {
			cookie.HTTPOnly = true
		}
		if len(parts) > 7 {
			switch parts[7] {
			case "None", "Lax", "Strict":
				cookie.SameSite = parts[7]
			}
		}

		cookies = append(cookies, cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cookie file %s: %w", path, err)
	}

	return cookies, nil
}
