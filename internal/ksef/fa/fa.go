// Package fa renders the FA e-invoice XML document submitted to KSeF.
package fa

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/marlink/accountant/pkg/db/models"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Render builds the FA document for an invoice. It is pure and
// deterministic: identical input yields byte-identical output.
//
// Amounts are rounded to two decimals at every derivation step (line net,
// line VAT, line gross), matching the recorded register values. Summing the
// rounded lines can drift by a grosz from the header totals; the header
// totals win and the per-line rounding is kept as-is.
func Render(inv models.Invoice) []byte {
	var sb strings.Builder

	gross := inv.TotalGross.StringFixed(2)
	vat := inv.TotalVAT.StringFixed(2)
	net := inv.TotalGross.Sub(inv.TotalVAT).StringFixed(2)

	var items strings.Builder
	for _, item := range inv.Items {
		writeItem(&items, item)
	}

	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	sb.WriteString("<Fa xmlns=\"http://ksef.mf.gov.pl/fa\">\n")
	sb.WriteString("  <Naglowek>\n")
	fmt.Fprintf(&sb, "    <Numer>%s</Numer>\n", escapeXML(inv.Number))
	fmt.Fprintf(&sb, "    <DataWystawienia>%s</DataWystawienia>\n", inv.IssueDate.Format(dateLayout))
	fmt.Fprintf(&sb, "    <Waluta>%s</Waluta>\n", escapeXML(inv.Currency))
	sb.WriteString("  </Naglowek>\n")
	writeParty(&sb, "Sprzedawca", inv.SellerNIP, inv.SellerName, inv.SellerAddress)
	writeParty(&sb, "Nabywca", inv.BuyerNIP, inv.BuyerName, inv.BuyerAddress)
	fmt.Fprintf(&sb, "  <Pozycje>%s</Pozycje>\n", items.String())
	sb.WriteString("  <Podsumowanie>\n")
	fmt.Fprintf(&sb, "    <Netto>%s</Netto>\n", net)
	fmt.Fprintf(&sb, "    <VAT>%s</VAT>\n", vat)
	fmt.Fprintf(&sb, "    <Brutto>%s</Brutto>\n", gross)
	sb.WriteString("  </Podsumowanie>\n")
	sb.WriteString("</Fa>")

	return []byte(sb.String())
}

func writeItem(sb *strings.Builder, item models.InvoiceItem) {
	lineNet := item.Qty.Mul(item.UnitPrice).Round(2)
	lineVAT := lineNet.Mul(item.VATRate).Div(hundred).Round(2)
	lineGross := lineNet.Add(lineVAT).Round(2)

	sb.WriteString("<Pozycja>")
	fmt.Fprintf(sb, "<Nazwa>%s</Nazwa>", escapeXML(item.Name))
	fmt.Fprintf(sb, "<Ilosc>%s</Ilosc>", item.Qty.String())
	fmt.Fprintf(sb, "<CenaJednostkowa>%s</CenaJednostkowa>", item.UnitPrice.StringFixed(2))
	fmt.Fprintf(sb, "<StawkaVAT>%s</StawkaVAT>", item.VATRate.String())
	if item.GTUCode != nil && *item.GTUCode != "" {
		fmt.Fprintf(sb, "<GTU>%s</GTU>", escapeXML(*item.GTUCode))
	}
	fmt.Fprintf(sb, "<Netto>%s</Netto>", lineNet.StringFixed(2))
	fmt.Fprintf(sb, "<VAT>%s</VAT>", lineVAT.StringFixed(2))
	fmt.Fprintf(sb, "<Brutto>%s</Brutto>", lineGross.StringFixed(2))
	sb.WriteString("</Pozycja>")
}

func writeParty(sb *strings.Builder, tag, nip, name, address string) {
	fmt.Fprintf(sb, "  <%s><NIP>%s</NIP><Nazwa>%s</Nazwa><Adres>%s</Adres></%s>\n",
		tag, escapeXML(nip), escapeXML(name), escapeXML(address), tag)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(v string) string {
	return xmlEscaper.Replace(v)
}
