package handler

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tiv91/intimshopbot/internal/chat"
	"github.com/tiv91/intimshopbot/models"
)

// escape makes sheet and customer text literal in MarkdownV2, inside
// entities as well as outside them.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

// productCaption renders "*name*\ndescription\n💰 price" in MarkdownV2.
// Empty description or price lines are left out.
func productCaption(p *models.Product) string {
	var b strings.Builder
	b.WriteString("*" + escape(p.Name) + "*")
	if p.Description != "" {
		b.WriteString("\n" + escape(p.Description))
	}
	if p.PriceText != "" {
		b.WriteString("\n💰 " + escape(p.PriceText))
	}
	return b.String()
}

func productKeyboard(p *models.Product) chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Text: btnAddToCart, Data: AddData(p.Category, p.ID)}),
	}
}

// mainKeyboard is one button per category, then the price filter row, then the cart.
func mainKeyboard(categories []string, filters []PriceFilter) chat.Keyboard {
	kb := make(chat.Keyboard, 0, len(categories)+2)
	for _, category := range categories {
		kb = append(kb, chat.Row(chat.Button{Text: category, Data: CategoryData(category)}))
	}
	if len(filters) > 0 {
		row := make([]chat.Button, 0, len(filters))
		for _, f := range filters {
			row = append(row, chat.Button{Text: f.Label, Data: FilterData(f.Min, f.Max)})
		}
		kb = append(kb, row)
	}
	kb = append(kb, chat.Row(chat.Button{Text: btnCart, Data: ViewCartData()}))
	return kb
}

func cartText(cart *models.Cart, currency string) string {
	var b strings.Builder
	b.WriteString(msgCartHeader)
	for _, line := range cart.Lines(currency) {
		b.WriteString("\n" + escape(line))
	}
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf(msgCartTotal, escape(models.FormatPrice(cart.Total(), currency))))
	b.WriteString("\n\n")
	b.WriteString(msgOrderPrompt)
	return b.String()
}
