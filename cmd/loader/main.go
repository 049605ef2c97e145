// loader importa al ledger el CSV exportado del SIRE (RVIE). El archivo llega
// delimitado por pipe y codificado en Windows-1252; cada par RUC+periodo se
// reemplaza completo en una sola transacción y, opcionalmente, se refresca el
// snapshot al final.
//
// Uso: go run ./cmd/loader -archivo ventas.csv [-delimitador "|"] [-utf8] [-refresh]
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/reconcile"
	"github.com/operaciones-peru/crm-sunat/internal/infrastructure/postgres"
	"github.com/operaciones-peru/crm-sunat/pkg/config"
	"github.com/operaciones-peru/crm-sunat/pkg/logger"
)

func main() {
	archivo := flag.String("archivo", "", "ruta del CSV del SIRE (requerido)")
	delimitador := flag.String("delimitador", "|", "delimitador de campos")
	utf8 := flag.Bool("utf8", false, "el archivo ya está en UTF-8 (por defecto Windows-1252)")
	refresh := flag.Bool("refresh", false, "refrescar el snapshot al terminar")
	flag.Parse()

	delim, ok := primeraRuna(*delimitador)
	if *archivo == "" || !ok {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("esquema base")
	}

	f, err := os.Open(*archivo)
	if err != nil {
		log.Fatal().Err(err).Str("archivo", *archivo).Msg("abrir CSV")
	}
	defer f.Close()

	var r io.Reader = f
	if !*utf8 {
		r = transform.NewReader(f, charmap.Windows1252.NewDecoder())
	}

	filas, err := parseVentas(r, delim)
	if err != nil {
		log.Fatal().Err(err).Msg("parsear CSV")
	}
	facturas, notas, otros := clasificar(filas)
	log.Info().Int("filas", len(filas)).
		Int("facturas", facturas).Int("notas_credito", notas).Int("otros", otros).
		Msg("CSV parseado")

	// Un ReplacePeriodo por cada par RUC+periodo presente en el archivo.
	ventaRepo := postgres.NewVentaRepository(pool)
	grupos := map[[2]string][]entity.Venta{}
	for _, v := range filas {
		k := [2]string{v.RUC, v.Periodo}
		grupos[k] = append(grupos[k], v)
	}
	for k, vs := range grupos {
		if err := ventaRepo.ReplacePeriodo(ctx, k[0], k[1], vs); err != nil {
			log.Fatal().Err(err).Str("ruc", k[0]).Str("periodo", k[1]).Msg("reemplazar periodo")
		}
		log.Info().Str("ruc", k[0]).Str("periodo", k[1]).Int("filas", len(vs)).Msg("periodo importado")
	}

	if *refresh {
		snapshotRepo := postgres.NewSnapshotRepository(pool)
		run, err := snapshotRepo.Refresh(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("refrescar snapshot")
		}
		log.Info().Str("run_id", run.ID).Int64("filas", run.Filas).Msg("snapshot refrescado")
	}
}

// primeraRuna devuelve la primera runa de la bandera de delimitador; falso si
// llegó vacía.
func primeraRuna(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}

// clasificar cuenta lo importado por tipo: facturas elegibles para conciliar,
// notas de crédito, y el resto (boletas, sin contraparte válida, otros tipos).
func clasificar(filas []entity.Venta) (facturas, notas, otros int) {
	for i := range filas {
		v := &filas[i]
		switch {
		case entity.EsNotaCredito(v.TipoCPDoc):
			notas++
		case entity.EsFactura(v.TipoCPDoc) && reconcile.Elegible(v):
			facturas++
		default:
			otros++
		}
	}
	return facturas, notas, otros
}

// parseVentas lee el CSV con encabezado y mapea las columnas por nombre.
func parseVentas(r io.Reader, delim rune) ([]entity.Venta, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("leer encabezado: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[normalizarColumna(h)] = i
	}
	for _, requerida := range []string{"ruc", "periodo", "tipo_cp_doc"} {
		if _, ok := idx[requerida]; !ok {
			return nil, fmt.Errorf("columna %q ausente en el encabezado", requerida)
		}
	}

	campo := func(rec []string, nombre string) string {
		i, ok := idx[nombre]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []entity.Venta
	linea := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		linea++
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", linea, err)
		}
		v := entity.Venta{
			RUC:                 campo(rec, "ruc"),
			RazonSocial:         opcional(campo(rec, "razon_social")),
			Periodo:             campo(rec, "periodo"),
			CarSunat:            opcional(campo(rec, "car_sunat")),
			FechaEmision:        fecha(campo(rec, "fecha_emision")),
			FechaVctoPago:       fecha(campo(rec, "fecha_vcto_pago")),
			TipoCPDoc:           campo(rec, "tipo_cp_doc"),
			SerieCDP:            campo(rec, "serie_cdp"),
			NroCPInicial:        campo(rec, "nro_cp_inicial"),
			NroFinal:            opcional(campo(rec, "nro_final")),
			TipoDocIdentidad:    opcional(campo(rec, "tipo_doc_identidad")),
			NroDocIdentidad:     campo(rec, "nro_doc_identidad"),
			RazonSocialCliente:  opcional(campo(rec, "apellidos_nombres_razon_social")),
			TotalCP:             monto(campo(rec, "total_cp")),
			Moneda:              campo(rec, "moneda"),
			TipoCambio:          monto(campo(rec, "tipo_cambio")),
			FechaEmisionDocMod:  fecha(campo(rec, "fecha_emision_doc_modificado")),
			TipoCPModificado:    opcional(campo(rec, "tipo_cp_modificado")),
			SerieCPModificado:   opcional(campo(rec, "serie_cp_modificado")),
			NroCPModificado:     opcional(campo(rec, "nro_cp_modificado")),
			TipoNota:            opcional(campo(rec, "tipo_nota")),
			EstComp:             opcional(campo(rec, "est_comp")),
			UltimaActualizacion: time.Now(),
		}
		if v.RUC == "" || v.Periodo == "" {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// normalizarColumna encabezado → snake_case sin espacios ni mayúsculas.
func normalizarColumna(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

func opcional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// fecha acepta los dos formatos que trae el SIRE.
func fecha(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// monto vacío o ilegible queda en cero (sin tipo de cambio / sin monto).
func monto(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}
