package sqlite

// schemaStatements mirrors the Postgres warehouse DDL in SQLite terms:
// AUTOINCREMENT surrogate keys, TEXT for dates/times, REAL for coordinates.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dim_acidente (
		id_acidente INTEGER PRIMARY KEY AUTOINCREMENT,
		tipo_acidente TEXT,
		classificacao_acidente TEXT,
		causa_acidente TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS dim_pista (
		id_pista INTEGER PRIMARY KEY AUTOINCREMENT,
		sentido_via TEXT,
		tipo_pista TEXT,
		tracado_via TEXT,
		uso_solo TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS dim_veiculo (
		id_veiculo INTEGER PRIMARY KEY AUTOINCREMENT,
		tipo_veiculo TEXT,
		marca TEXT,
		ano_fabricacao INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS dim_localidade (
		id_localidade INTEGER PRIMARY KEY AUTOINCREMENT,
		municipio TEXT,
		uf TEXT,
		br INTEGER,
		km REAL,
		latitude REAL,
		longitude REAL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_vitima (
		id_vitima INTEGER PRIMARY KEY AUTOINCREMENT,
		sexo TEXT,
		idade INTEGER,
		estado_fisico TEXT,
		tipo_envolvido TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS dim_tempo (
		id_tempo INTEGER PRIMARY KEY AUTOINCREMENT,
		data_completa TEXT,
		horario TEXT,
		fase_dia TEXT,
		ano INTEGER,
		mes INTEGER,
		dia INTEGER,
		trimestre INTEGER,
		nome_mes TEXT,
		dia_semana TEXT,
		mes_ord INTEGER,
		dia_semana_ord INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS dim_cnd_meteorologica (
		id_cnd INTEGER PRIMARY KEY AUTOINCREMENT,
		cnd_meteorologica TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS fato_acidentes (
		id_fato INTEGER PRIMARY KEY AUTOINCREMENT,
		id_tempo INTEGER REFERENCES dim_tempo (id_tempo),
		id_vitima INTEGER REFERENCES dim_vitima (id_vitima),
		id_pista INTEGER REFERENCES dim_pista (id_pista),
		id_acidente INTEGER REFERENCES dim_acidente (id_acidente),
		id_veiculo INTEGER REFERENCES dim_veiculo (id_veiculo),
		id_localidade INTEGER REFERENCES dim_localidade (id_localidade),
		id_cnd INTEGER REFERENCES dim_cnd_meteorologica (id_cnd),
		ilesos INTEGER,
		feridos_leves INTEGER,
		feridos_graves INTEGER,
		mortos INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS etl_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		etapa TEXT,
		registros_processados INTEGER,
		inicio TEXT,
		fim TEXT,
		duracao_segundos REAL,
		status TEXT,
		erro TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dim_acidente_nk
		ON dim_acidente (tipo_acidente, classificacao_acidente, causa_acidente)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dim_pista_nk
		ON dim_pista (sentido_via, tipo_pista, tracado_via, uso_solo)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dim_veiculo_nk
		ON dim_veiculo (tipo_veiculo, marca, ano_fabricacao)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dim_localidade_nk
		ON dim_localidade (municipio, uf, br, km, latitude, longitude)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dim_vitima_nk
		ON dim_vitima (sexo, idade, estado_fisico, tipo_envolvido)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dim_tempo_nk
		ON dim_tempo (data_completa, horario, fase_dia, ano, mes, dia, trimestre,
			nome_mes, dia_semana, mes_ord, dia_semana_ord)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dim_cnd_meteorologica_nk
		ON dim_cnd_meteorologica (cnd_meteorologica)`,
}
