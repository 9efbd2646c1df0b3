package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/tradescribe/TradeScribe/models"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// PromptForCredentials asks for the sign-in email and password.
func PromptForCredentials() (email, password string, err error) {
	if err = survey.AskOne(&survey.Input{
		Message: "Email:",
	}, &email, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if !strings.Contains(str, "@") {
			return fmt.Errorf("enter a valid email address")
		}
		return nil
	})); err != nil {
		return "", "", err
	}

	if err = survey.AskOne(&survey.Password{
		Message: "Password:",
	}, &password, survey.WithValidator(survey.Required)); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(email), password, nil
}

// PromptForTrade walks through logging a trade by hand. Exit price and exit
// date stay empty for an open position.
func PromptForTrade() (models.TradeInput, error) {
	var input models.TradeInput

	var ticker string
	if err := survey.AskOne(&survey.Input{
		Message: "Ticker symbol (e.g. AAPL):",
	}, &ticker, survey.WithValidator(validateTicker)); err != nil {
		return input, err
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	input.Ticker = &ticker

	entryPrice, err := promptPrice("Entry price:", true)
	if err != nil {
		return input, err
	}
	input.EntryPrice = entryPrice

	var qtyStr string
	if err := survey.AskOne(&survey.Input{
		Message: "Quantity:",
	}, &qtyStr, survey.WithValidator(func(val interface{}) error {
		n, err := strconv.ParseInt(strings.TrimSpace(val.(string)), 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("quantity must be a positive whole number")
		}
		return nil
	})); err != nil {
		return input, err
	}
	qty, _ := strconv.ParseInt(strings.TrimSpace(qtyStr), 10, 64)
	input.Quantity = &qty

	entryDate, err := promptDate("Entry date (YYYY-MM-DD):", time.Now().Format("2006-01-02"))
	if err != nil {
		return input, err
	}
	input.EntryDate = entryDate

	exitPrice, err := promptPrice("Exit price (empty if still open):", false)
	if err != nil {
		return input, err
	}
	input.ExitPrice = exitPrice

	if exitPrice != nil {
		exitDate, err := promptDate("Exit date (YYYY-MM-DD):", time.Now().Format("2006-01-02"))
		if err != nil {
			return input, err
		}
		input.ExitDate = exitDate
	}

	var notes string
	if err := survey.AskOne(&survey.Input{
		Message: "Notes (optional):",
	}, &notes); err != nil {
		return input, err
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		input.Notes = &notes
	}

	return input, nil
}

// PromptForExit closes an open trade: exit price plus exit date.
func PromptForExit() (models.TradeInput, error) {
	var input models.TradeInput

	exitPrice, err := promptPrice("Exit price:", true)
	if err != nil {
		return input, err
	}
	input.ExitPrice = exitPrice

	exitDate, err := promptDate("Exit date (YYYY-MM-DD):", time.Now().Format("2006-01-02"))
	if err != nil {
		return input, err
	}
	input.ExitDate = exitDate
	return input, nil
}

// ConfirmDelete asks before a destructive action.
func ConfirmDelete(what string) (bool, error) {
	confirmed := false
	err := survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("Delete %s?", what),
		Default: false,
	}, &confirmed)
	return confirmed, err
}

func validateTicker(val interface{}) error {
	str := strings.ToUpper(strings.TrimSpace(val.(string)))
	if str == "" {
		return fmt.Errorf("ticker symbol cannot be empty")
	}
	if len(str) > 10 {
		return fmt.Errorf("ticker symbol too long (max 10 characters)")
	}
	if !tickerPattern.MatchString(str) {
		return fmt.Errorf("invalid ticker format (letters, numbers, dots and hyphens only)")
	}
	return nil
}

// promptPrice asks for a dollar amount. When required is false an empty
// answer returns nil.
func promptPrice(message string, required bool) (*float64, error) {
	var str string
	err := survey.AskOne(&survey.Input{
		Message: message,
	}, &str, survey.WithValidator(func(val interface{}) error {
		s := strings.TrimSpace(val.(string))
		if s == "" {
			if required {
				return fmt.Errorf("a price is required")
			}
			return nil
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil || p <= 0 {
			return fmt.Errorf("enter a positive price, e.g. 178.50")
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, nil
	}
	p, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func promptDate(message, defaultValue string) (*string, error) {
	var str string
	err := survey.AskOne(&survey.Input{
		Message: message,
		Default: defaultValue,
	}, &str, survey.WithValidator(func(val interface{}) error {
		s := strings.TrimSpace(val.(string))
		if s == "" {
			return nil
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	str = strings.TrimSpace(str)
	if str == "" {
		str = defaultValue
	}
	return &str, nil
}
