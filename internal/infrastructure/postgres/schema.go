package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaDDL tablas base del CRM. Los ledgers ventas_sire / compras_sire
// replican el subconjunto de columnas del CSV del SIRE que el CRM consume.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS ventas_sire (
		id                             BIGSERIAL PRIMARY KEY,
		ruc                            VARCHAR(11) NOT NULL,
		razon_social                   TEXT,
		periodo                        VARCHAR(6) NOT NULL,
		car_sunat                      TEXT,
		fecha_emision                  DATE,
		fecha_vcto_pago                DATE,
		tipo_cp_doc                    VARCHAR(3) NOT NULL,
		serie_cdp                      VARCHAR(20) NOT NULL DEFAULT '',
		nro_cp_inicial                 VARCHAR(20) NOT NULL DEFAULT '',
		nro_final                      VARCHAR(20),
		tipo_doc_identidad             VARCHAR(3),
		nro_doc_identidad              VARCHAR(15) NOT NULL DEFAULT '',
		apellidos_nombres_razon_social TEXT,
		total_cp                       NUMERIC(14, 2) NOT NULL DEFAULT 0,
		moneda                         VARCHAR(3) NOT NULL DEFAULT 'PEN',
		tipo_cambio                    NUMERIC(10, 3),
		fecha_emision_doc_modificado   DATE,
		tipo_cp_modificado             VARCHAR(3),
		serie_cp_modificado            VARCHAR(20),
		nro_cp_modificado              VARCHAR(20),
		tipo_nota                      VARCHAR(3),
		est_comp                       VARCHAR(3),
		estado1                        VARCHAR(20),
		estado2                        VARCHAR(40),
		ultima_actualizacion           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ventas_sire_ruc_periodo ON ventas_sire (ruc, periodo)`,
	`CREATE INDEX IF NOT EXISTS idx_ventas_sire_cruce_nc ON ventas_sire (ruc, nro_cp_modificado, nro_doc_identidad)
		WHERE tipo_cp_doc IN ('7', '07')`,
	`CREATE INDEX IF NOT EXISTS idx_ventas_sire_fecha ON ventas_sire (fecha_emision)`,

	`CREATE TABLE IF NOT EXISTS compras_sire (
		id                             BIGSERIAL PRIMARY KEY,
		ruc                            VARCHAR(11) NOT NULL,
		razon_social                   TEXT,
		periodo                        VARCHAR(6) NOT NULL,
		car_sunat                      TEXT,
		fecha_emision                  DATE,
		fecha_vcto_pago                DATE,
		tipo_cp_doc                    VARCHAR(3) NOT NULL,
		serie_cdp                      VARCHAR(20) NOT NULL DEFAULT '',
		nro_cp_inicial                 VARCHAR(20) NOT NULL DEFAULT '',
		tipo_doc_identidad             VARCHAR(3),
		nro_doc_identidad              VARCHAR(15) NOT NULL DEFAULT '',
		apellidos_nombres_razon_social TEXT,
		total_cp                       NUMERIC(14, 2) NOT NULL DEFAULT 0,
		moneda                         VARCHAR(3) NOT NULL DEFAULT 'PEN',
		tipo_cambio                    NUMERIC(10, 3),
		ultima_actualizacion           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_compras_sire_ruc_periodo ON compras_sire (ruc, periodo)`,

	`CREATE TABLE IF NOT EXISTS enrolados (
		id           BIGSERIAL PRIMARY KEY,
		ruc          VARCHAR(11) NOT NULL UNIQUE,
		razon_social TEXT,
		email        TEXT,
		estado       VARCHAR(20) NOT NULL DEFAULT 'pendiente'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_enrolados_email ON enrolados (LOWER(email))`,

	`CREATE TABLE IF NOT EXISTS usuarios (
		email          TEXT PRIMARY KEY,
		nombre         TEXT NOT NULL,
		rol            VARCHAR(10) NOT NULL DEFAULT 'usuario',
		password_hash  TEXT NOT NULL,
		ultimo_ingreso TIMESTAMPTZ
	)`,

	createRefreshLogSQL,
}

// EnsureSchema crea las tablas base si no existen. La vista materializada se
// administra aparte (SnapshotRepo.Rebuild).
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range schemaDDL {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
