package postgres

// schemaStatements is the idempotent warehouse DDL: the seven dimension
// tables, the fact table, the audit log, and one unique index per dimension
// natural key. The ALTER statements backfill the ordering columns on
// dim_tempo for warehouses created before they existed.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dim_acidente (
		id_acidente SERIAL PRIMARY KEY,
		tipo_acidente VARCHAR(255),
		classificacao_acidente VARCHAR(255),
		causa_acidente VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS dim_pista (
		id_pista SERIAL PRIMARY KEY,
		sentido_via VARCHAR(100),
		tipo_pista VARCHAR(100),
		tracado_via VARCHAR(100),
		uso_solo VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS dim_veiculo (
		id_veiculo SERIAL PRIMARY KEY,
		tipo_veiculo VARCHAR(100),
		marca VARCHAR(100),
		ano_fabricacao INT
	)`,
	`CREATE TABLE IF NOT EXISTS dim_localidade (
		id_localidade SERIAL PRIMARY KEY,
		municipio VARCHAR(150),
		uf VARCHAR(20),
		br INT,
		km DOUBLE PRECISION,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS dim_vitima (
		id_vitima SERIAL PRIMARY KEY,
		sexo VARCHAR(30),
		idade INT,
		estado_fisico VARCHAR(50),
		tipo_envolvido VARCHAR(50)
	)`,
	`CREATE TABLE IF NOT EXISTS dim_tempo (
		id_tempo SERIAL PRIMARY KEY,
		data_completa DATE,
		horario TIME,
		fase_dia VARCHAR(20),
		ano INT,
		mes INT,
		dia INT,
		trimestre INT,
		nome_mes VARCHAR(20),
		dia_semana VARCHAR(20),
		mes_ord INT,
		dia_semana_ord INT
	)`,
	`CREATE TABLE IF NOT EXISTS dim_cnd_meteorologica (
		id_cnd SERIAL PRIMARY KEY,
		cnd_meteorologica VARCHAR(100)
	)`,
	`ALTER TABLE IF EXISTS dim_tempo ADD COLUMN IF NOT EXISTS mes_ord INT`,
	`ALTER TABLE IF EXISTS dim_tempo ADD COLUMN IF NOT EXISTS dia_semana_ord INT`,
	`CREATE TABLE IF NOT EXISTS fato_acidentes (
		id_fato BIGSERIAL PRIMARY KEY,
		id_tempo INT REFERENCES dim_tempo (id_tempo),
		id_vitima INT REFERENCES dim_vitima (id_vitima),
		id_pista INT REFERENCES dim_pista (id_pista),
		id_acidente INT REFERENCES dim_acidente (id_acidente),
		id_veiculo INT REFERENCES dim_veiculo (id_veiculo),
		id_localidade INT REFERENCES dim_localidade (id_localidade),
		id_cnd INT REFERENCES dim_cnd_meteorologica (id_cnd),
		ilesos INT,
		feridos_leves INT,
		feridos_graves INT,
		mortos INT
	)`,
	`CREATE TABLE IF NOT EXISTS etl_log (
		id SERIAL PRIMARY KEY,
		etapa VARCHAR(100),
		registros_processados INT,
		inicio TIMESTAMP,
		fim TIMESTAMP,
		duracao_segundos NUMERIC(10,2),
		status VARCHAR(20),
		erro TEXT
	)`,

	// One unique index per natural key. Lookups still take the newest row on
	// duplicates so warehouses populated before these indexes stay readable.
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
