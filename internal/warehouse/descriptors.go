package warehouse

import (
	"math"

	"saferoad/internal/coerce"
	"saferoad/internal/storage"
	"saferoad/pkg/records"
)

// Fact table shape. The key columns follow the historical insert order
// (tempo, vitima, pista, acidente, veiculo, localidade, cnd) and must not
// change: downstream tooling reads the fact table positionally.
const FactTable = "fato_acidentes"

// MeasureColumns are the four numeric fact measures, appended after the
// dimension keys.
var MeasureColumns = []string{"ilesos", "feridos_leves", "feridos_graves", "mortos"}

// defaultVehicleYear stands in for absent or nonsensical manufacture years.
const defaultVehicleYear = 1900

// Dimensions returns the seven dimension descriptors, ordered to match the
// fact table's key columns. Natural keys are built exclusively from
// coercion-layer outputs so they are stable and comparable regardless of how
// dirty the source row is.
func Dimensions() []Dimension {
	return []Dimension{
		{
			Name: "dim_tempo",
			Table: storage.DimensionTable{
				Table:    "dim_tempo",
				IDColumn: "id_tempo",
				KeyColumns: []string{
					"data_completa", "horario", "fase_dia", "ano", "mes", "dia", "trimestre",
					"nome_mes", "dia_semana", "mes_ord", "dia_semana_ord",
				},
			},
			Key: func(r records.Record) []any {
				var date any
				if d, ok := coerce.AsDate(r.Get("data_completa")); ok {
					date = d
				}
				var tod any
				if t, ok := coerce.AsTime(r.Get("horario")); ok {
					tod = t
				}
				return []any{
					date,
					tod,
					coerce.AsText(r.Get("fase_dia"), coerce.NotInformed),
					coerce.AsInt(r.Get("ano"), defaultVehicleYear),
					coerce.AsInt(r.Get("mes"), 0),
					coerce.AsInt(r.Get("dia"), 0),
					coerce.AsInt(r.Get("trimestre"), 0),
					coerce.AsText(r.Get("nome_mes"), coerce.NotInformed),
					coerce.AsText(r.Get("dia_semana"), coerce.NotInformed),
					coerce.AsInt(r.Get("mes_ord"), 0),
					coerce.AsInt(r.Get("dia_semana_ord"), 0),
				}
			},
		},
		{
			Name: "dim_vitima",
			Table: storage.DimensionTable{
				Table:      "dim_vitima",
				IDColumn:   "id_vitima",
				KeyColumns: []string{"sexo", "idade", "estado_fisico", "tipo_envolvido"},
			},
			Key: func(r records.Record) []any {
				return []any{
					coerce.AsText(r.Get("sexo"), coerce.NotInformed),
					coerce.AsInt(r.Get("idade"), 0),
					coerce.AsText(r.Get("estado_fisico"), coerce.NotInformed),
					coerce.AsText(r.Get("tipo_envolvido"), coerce.NotInformed),
				}
			},
		},
		{
			Name: "dim_pista",
			Table: storage.DimensionTable{
				Table:      "dim_pista",
				IDColumn:   "id_pista",
				KeyColumns: []string{"sentido_via", "tipo_pista", "tracado_via", "uso_solo"},
			},
			Key: func(r records.Record) []any {
				return []any{
					coerce.AsText(r.Get("sentido_via"), coerce.NotInformed),
					coerce.AsText(r.Get("tipo_pista"), coerce.NotInformed),
					coerce.AsText(r.Get("tracado_via"), coerce.NotInformed),
					coerce.AsText(r.Get("uso_solo"), coerce.NotInformed),
				}
			},
		},
		{
			Name: "dim_acidente",
			Table: storage.DimensionTable{
				Table:      "dim_acidente",
				IDColumn:   "id_acidente",
				KeyColumns: []string{"tipo_acidente", "classificacao_acidente", "causa_acidente"},
			},
			Key: func(r records.Record) []any {
				return []any{
					coerce.AsText(r.Get("tipo_acidente"), coerce.NotInformed),
					coerce.AsText(r.Get("classificacao_acidente"), coerce.NotInformed),
					coerce.AsText(r.Get("causa_acidente"), coerce.NotInformed),
				}
			},
		},
		{
			Name: "dim_veiculo",
			Table: storage.DimensionTable{
				Table:      "dim_veiculo",
				IDColumn:   "id_veiculo",
				KeyColumns: []string{"tipo_veiculo", "marca", "ano_fabricacao"},
			},
			Key: func(r records.Record) []any {
				return []any{
					coerce.AsText(r.Get("tipo_veiculo"), coerce.NotInformed),
					coerce.AsText(r.Get("marca"), coerce.NotInformed),
					coerce.AsInt(r.Get("ano_fabricacao"), defaultVehicleYear),
				}
			},
		},
		{
			Name: "dim_localidade",
			Table: storage.DimensionTable{
				Table:      "dim_localidade",
				IDColumn:   "id_localidade",
				KeyColumns: []string{"municipio", "uf", "br", "km", "latitude", "longitude"},
			},
			Key: func(r records.Record) []any {
				return []any{
					coerce.AsText(r.Get("municipio"), coerce.NotInformed),
					coerce.AsText(r.Get("uf"), coerce.NotInformed),
					coerce.AsInt(r.Get("br"), 0),
					roundTo(coerce.AsFloat(r.Get("km"), 0), 2),
					roundTo(coerce.AsFloat(r.Get("latitude"), 0), 6),
					roundTo(coerce.AsFloat(r.Get("longitude"), 0), 6),
				}
			},
		},
		{
			Name: "dim_cnd_meteorologica",
			Table: storage.DimensionTable{
				Table:      "dim_cnd_meteorologica",
				IDColumn:   "id_cnd",
				KeyColumns: []string{"cnd_meteorologica"},
			},
			Key: func(r records.Record) []any {
				return []any{coerce.AsText(r.Get("condicao_meteorologica"), coerce.NotInformed)}
			},
		},
	}
}

// roundTo rounds v to the given number of decimal places. Keys round before
// both lookup and insert, so float equality in storage stays exact.
func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
