package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
	"github.com/operaciones-peru/crm-sunat/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase login, identidad y resolución de alcance.
type AuthUseCase struct {
	usuarios  repository.UsuarioRepository
	enrolados repository.EnroladoRepository
	jwtCfg    JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(usuarios repository.UsuarioRepository, enrolados repository.EnroladoRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{usuarios: usuarios, enrolados: enrolados, jwtCfg: jwtCfg}
}

// Login verifica email/password y devuelve token + usuario. La primera vez que
// un email se presenta se registra con rol usuario y el password dado; los
// siguientes logins verifican contra el hash guardado. Registra ultimo_ingreso.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	u, err := uc.usuarios.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		u, err = uc.registrar(ctx, email, in.Password)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
			return nil, domain.ErrUnauthorized
		}
	}

	if err := uc.usuarios.ActualizarUltimoIngreso(ctx, email); err != nil {
		return nil, err
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, u.Email, u.Nombre, u.Rol, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		Usuario: dto.UsuarioResponse{
			Email:         u.Email,
			Nombre:        u.Nombre,
			Rol:           u.Rol,
			UltimoIngreso: time.Now(),
		},
	}, nil
}

// ResolveScope resuelve el alcance de un llamador autenticado: admin ve todo;
// el resto ve los RUCs de los enrolados asociados a su email. Sin enrolados el
// alcance queda restringido a nada (consultas vacías, no un error).
func (uc *AuthUseCase) ResolveScope(ctx context.Context, email, rol string) (domain.AccessScope, error) {
	if rol == entity.RolAdmin {
		return domain.Unrestricted(), nil
	}
	enrolados, err := uc.enrolados.ListByEmail(ctx, email)
	if err != nil {
		return domain.AccessScope{}, err
	}
	rucs := make([]string, 0, len(enrolados))
	for i := range enrolados {
		rucs = append(rucs, enrolados[i].RUC)
	}
	return domain.RestrictedTo(rucs), nil
}

// Me identidad y alcance del llamador actual.
func (uc *AuthUseCase) Me(ctx context.Context, email, nombre, rol string) (*dto.MeResponse, error) {
	scope, err := uc.ResolveScope(ctx, email, rol)
	if err != nil {
		return nil, err
	}
	return &dto.MeResponse{
		Email:           email,
		Nombre:          nombre,
		Rol:             rol,
		SinRestriccion:  scope.IsUnrestricted(),
		RUCsAutorizados: scope.RUCs(),
	}, nil
}

// registrar alta de primer ingreso: rol usuario, nombre derivado del email.
func (uc *AuthUseCase) registrar(ctx context.Context, email, password string) (*entity.Usuario, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	nombre := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		nombre = email[:at]
	}
	u := &entity.Usuario{
		Email:         email,
		Nombre:        nombre,
		Rol:           entity.RolUsuario,
		PasswordHash:  string(hash),
		UltimoIngreso: time.Now(),
	}
	if err := uc.usuarios.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
