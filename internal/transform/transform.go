// Package transform normalizes raw dataset records into the column set the
// warehouse loader expects: canonical column names, locale-decimal numerics,
// categorical defaults, and the derived calendar fields.
package transform

import (
	"log"
	"regexp"
	"strings"
	"time"

	"saferoad/internal/coerce"
	"saferoad/pkg/records"
)

// Column candidates: the portal renamed these across years, so the first
// matching candidate wins and lands under the canonical name.
var (
	weatherCandidates = []string{
		"condicao_meteorologica", "condicao_metereologica",
		"cond_meteorologica", "cond_meteo", "condicao_tempo",
	}
	causeCandidates = []string{
		"causa_acidente", "causa", "causa_principal",
		"descricao_causa", "motivo_acidente",
	}
)

// intColumns are coerced to integers with 0 for anything unparseable.
var intColumns = []string{
	"idade", "ilesos", "feridos_leves", "feridos_graves", "mortos", "pesid", "br",
}

// categoricalColumns receive the NÃO INFORMADO sentinel when blank.
var categoricalColumns = []string{
	"tipo_veiculo", "tipo_envolvido", "estado_fisico", "sexo", "marca",
	"tipo_acidente", "classificacao_acidente", "municipio", "uf",
	"sentido_via", "tipo_pista", "tracado_via", "uso_solo",
	"condicao_meteorologica",
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// weekdayNames is indexed Monday=0 .. Sunday=6 to match dia_semana_ord.
var weekdayNames = [...]string{
	"Segunda-feira", "Terça-feira", "Quarta-feira", "Quinta-feira",
	"Sexta-feira", "Sábado", "Domingo",
}

var vehicleTypeAuto = regexp.MustCompile(`(?i)\bautom[oó]vel\b`)

const (
	maxWeatherLen = 100
	maxCauseLen   = 255
)

// Apply normalizes every record in place and returns the same slice. It never
// drops rows; unresolvable values become sentinels so the load stage decides
// what to do with them.
func Apply(recs []records.Record) []records.Record {
	for _, rec := range recs {
		normalize(rec)
	}
	log.Printf("transform: normalized %d rows", len(recs))
	return recs
}

func normalize(rec records.Record) {
	renameKey(rec, "ano_fabricacao_veiculo", "ano_fabricacao")
	renameKey(rec, "id", "id_ac")

	canonicalize(rec, weatherCandidates, "condicao_meteorologica", maxWeatherLen)
	canonicalize(rec, causeCandidates, "causa_acidente", maxCauseLen)

	for _, col := range intColumns {
		if _, ok := rec[col]; ok {
			rec[col] = coerce.AsInt(rec[col], 0)
		}
	}
	for _, col := range []string{"km", "latitude", "longitude"} {
		if _, ok := rec[col]; ok {
			rec[col] = coerce.AsFloat(rec[col], 0)
		}
	}

	for _, col := range categoricalColumns {
		if _, ok := rec[col]; ok {
			rec[col] = coerce.AsText(rec[col], coerce.NotInformed)
		}
	}
	if v, ok := rec["tipo_veiculo"].(string); ok {
		rec["tipo_veiculo"] = vehicleTypeAuto.ReplaceAllString(v, "Carro de Passeio")
	}

	if _, ok := rec["ano_fabricacao"]; ok {
		year := coerce.AsInt(rec["ano_fabricacao"], 1900)
		if year <= 0 {
			year = 1900
		}
		rec["ano_fabricacao"] = year
	}

	normalizeCalendar(rec)
	normalizeTimeOfDay(rec)
}

// renameKey moves src to dst unless dst already exists.
func renameKey(rec records.Record, src, dst string) {
	if v, ok := rec[src]; ok {
		if _, exists := rec[dst]; !exists {
			rec[dst] = v
		}
		delete(rec, src)
	}
}

// canonicalize finds the first candidate column present on the record and
// republishes it under the canonical name: trimmed, length-capped, blank
// mapped to the sentinel.
func canonicalize(rec records.Record, candidates []string, canonical string, maxLen int) {
	var raw any
	for _, cand := range candidates {
		if v, ok := rec[cand]; ok {
			raw = v
			if cand != canonical {
				delete(rec, cand)
			}
			break
		}
	}
	text := coerce.AsText(raw, coerce.NotInformed)
	if runes := []rune(text); len(runes) > maxLen {
		text = string(runes[:maxLen])
	}
	rec[canonical] = text
}

// normalizeCalendar derives data_completa from data_inversa and the calendar
// columns from it: ano/mes/dia/trimestre, PT-BR month and weekday names, and
// their ordering companions (Monday=1).
func normalizeCalendar(rec records.Record) {
	raw := rec.Get("data_inversa")
	if raw == nil {
		for k, v := range rec {
			if strings.Contains(k, "data") && k != "data_completa" {
				raw = v
				break
			}
		}
	}

	date, ok := coerce.AsDate(raw)
	if !ok {
		rec["data_completa"] = nil
		rec["ano"] = 1900
		rec["mes"], rec["dia"], rec["trimestre"] = 0, 0, 0
		rec["mes_ord"], rec["dia_semana_ord"] = 0, 0
		rec["nome_mes"] = coerce.NotInformed
		rec["dia_semana"] = coerce.NotInformed
		return
	}

	rec["data_completa"] = date
	rec["ano"] = date.Year()
	rec["mes"] = int(date.Month())
	rec["dia"] = date.Day()
	rec["trimestre"] = (int(date.Month())-1)/3 + 1
	rec["mes_ord"] = int(date.Month())
	rec["dia_semana_ord"] = mondayOrdinal(date.Weekday())
	rec["nome_mes"] = monthNames[date.Month()-1]
	rec["dia_semana"] = weekdayNames[mondayOrdinal(date.Weekday())-1]
}

// mondayOrdinal maps time.Weekday to 1..7 with Monday=1.
func mondayOrdinal(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// normalizeTimeOfDay canonicalizes horario to HH:MM:SS and derives fase_dia
// from the hour when the dataset did not ship the column.
func normalizeTimeOfDay(rec records.Record) {
	tod, ok := coerce.AsTime(rec.Get("horario"))
	if ok {
		rec["horario"] = tod
	} else {
		rec["horario"] = nil
	}

	if coerce.AsText(rec.Get("fase_dia"), "") != "" {
		return
	}
	if !ok {
		rec["fase_dia"] = coerce.NotInformed
		return
	}
	hour := coerce.AsInt(tod[:2], 0)
	switch {
	case hour <= 5:
		rec["fase_dia"] = "MADRUGADA"
	case hour <= 11:
		rec["fase_dia"] = "MANHÃ"
	case hour <= 17:
		rec["fase_dia"] = "TARDE"
	default:
		rec["fase_dia"] = "NOITE"
	}
}
