package report

import (
	"fmt"
	"strings"

	"grana/internal/core"
)

const divider = "─────────────────────"

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// RenderSummary formats the day-plus-week report as Telegram-style HTML.
func RenderSummary(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📅 <b>Hoje</b> (%s)\n", s.Day.Window.Start.Format("02/01"))
	fmt.Fprintf(&b, "    💰 Total: <b>%s</b>  •  %d gasto(s)\n\n",
		core.FormatBRL(s.Day.Totals.Sum), s.Day.Totals.Count)
	writeCategories(&b, s.Day.Categories, "    <i>Nenhum gasto hoje</i>\n")

	b.WriteString("\n" + divider + "\n\n")

	fmt.Fprintf(&b, "🗓 <b>Semana</b> (desde %s)\n", s.Week.Window.Start.Format("02/01"))
	fmt.Fprintf(&b, "    💰 Total: <b>%s</b>  •  %d gasto(s)\n\n",
		core.FormatBRL(s.Week.Totals.Sum), s.Week.Totals.Count)
	writeCategories(&b, s.Week.Categories, "    <i>Nenhum gasto na semana</i>\n")

	return strings.TrimRight(b.String(), "\n")
}

func writeCategories(b *strings.Builder, cats []core.CategoryTotal, empty string) {
	if len(cats) == 0 {
		b.WriteString(empty)
		return
	}
	for _, c := range cats {
		fmt.Fprintf(b, "    %s %s: <code>%s</code> (%d)\n",
			core.Emoji(c.Category), c.Category, core.FormatBRL(c.Sum), c.Count)
	}
}

// RenderScheduled prefixes a summary with the automatic-report header.
func RenderScheduled(s Summary, hour int) string {
	return fmt.Sprintf("🕚 <b>Relatório automático (%02d:00)</b>\n\n%s", hour, RenderSummary(s))
}

// RenderMonthBalance formats the month-to-date balance.
func RenderMonthBalance(mb MonthBalance) string {
	net := mb.Balance.Net()

	icon, label := "🟢", "positivo"
	if net.IsNegative() {
		icon, label = "🔴", "negativo"
	}

	start := mb.Window.Start
	monthName := fmt.Sprintf("%s/%d", monthNames[start.Month()-1], start.Year())

	return fmt.Sprintf(
		"💰 <b>Saldo de %s</b>\n"+
			"\n"+
			"🟢 Ganhos: <b>%s</b>  (%d registro(s))\n"+
			"🔴 Gastos: <b>%s</b>  (%d registro(s))\n"+
			"\n"+
			divider+"\n"+
			"\n"+
			"%s Saldo: <b>%s</b> %s",
		monthName,
		core.FormatBRL(mb.Balance.IncomeSum), mb.Balance.IncomeCount,
		core.FormatBRL(mb.Balance.ExpenseSum), mb.Balance.ExpenseCount,
		icon, core.FormatBRL(net.Abs()), label,
	)
}

// RenderEntryList formats the last-N listing for /gastos and /ganhos.
func RenderEntryList(typ core.EntryType, entries []core.Entry) string {
	if len(entries) == 0 {
		if typ == core.Income {
			return "📭 <i>Nenhum ganho registrado ainda.</i>"
		}
		return "📭 <i>Nenhum gasto registrado ainda.</i>"
	}

	header := "📋 <b>Últimos gastos</b>\n"
	if typ == core.Income {
		header = "💚 <b>Últimos ganhos</b>\n"
	}

	lines := []string{header}
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf(
			"%d. %s <b>%s</b> — %s\n"+
				"     <i>%s</i>\n"+
				"     🕐 <code>%s</code>",
			i+1, core.Emoji(e.Category), core.FormatBRL(e.Amount), e.Category,
			e.Description, e.CreatedAt.Format("2006-01-02 15:04")))
		if i < len(entries)-1 {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

// RenderRecorded is the confirmation reply after a successful write.
func RenderRecorded(e core.Entry) string {
	desc := strings.TrimSpace(e.Description)

	header := "🔴 <b>Gasto registrado!</b>"
	if e.Type == core.Income {
		header = "🟢 <b>Ganho registrado!</b>"
		if desc == "" {
			desc = "Ganho"
		}
	} else if desc == "" {
		desc = "Gasto"
	}

	return fmt.Sprintf(
		"%s\n"+
			"\n"+
			"💰 Valor: <b>%s</b>\n"+
			"%s Categoria: <b>%s</b>\n"+
			"📝 Descrição: <i>%s</i>",
		header, core.FormatBRL(e.Amount), core.Emoji(e.Category), e.Category, desc)
}

// RenderUnrecognized is the reply when classification yields no usable amount.
func RenderUnrecognized() string {
	return "😅 <b>Não entendi</b>\n" +
		"\n" +
		"Tenta algo como:\n" +
		"  <code>gastei 50 no uber</code>\n" +
		"  <code>recebi 3000 de salario</code>"
}

// RenderHelp is the /start greeting with the command list.
func RenderHelp() string {
	return "👋 <b>Olá! Eu sou seu bot de finanças.</b>\n" +
		"\n" +
		"Me manda uma frase tipo:\n" +
		"  <code>gastei 50 no uber</code>\n" +
		"  <code>almocei 35 reais</code>\n" +
		"  <code>recebi 3000 de salario</code>\n" +
		"\n" +
		"📋 <b>Comandos:</b>\n" +
		"  /gastos — últimos 10 gastos\n" +
		"  /ganhos — últimos 10 ganhos\n" +
		"  /relatorio — resumo hoje + semana\n" +
		"  /saldo — saldo do mês\n" +
		"  /grafico — gráfico de gastos (30 dias)\n" +
		"  /balanco — gráfico gastos x ganhos"
}
