package membership

import "context"

// Service defines the interface for the member directory.
type Service interface {
	RegisterMember(ctx context.Context, req RegisterRequest) (*Member, error)
	Authenticate(ctx context.Context, email, password string) (*Member, error)
	GetMember(ctx context.Context, id string) (*Member, error)
	MemberExists(ctx context.Context, id string) (bool, error)
	ListMembers(ctx context.Context) ([]*Member, error)
	UpdateMember(ctx context.Context, id string, profile Profile) (*Member, error)
	DeleteMember(ctx context.Context, id string) error
}

// Repository stores members together with their credentials.
type Repository interface {
	Insert(ctx context.Context, member *Member, credential *Credential) error
	Get(ctx context.Context, id string) (*Member, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*Member, error)
	UpdateProfile(ctx context.Context, id string, profile Profile) (*Member, error)
	Delete(ctx context.Context, id string) error
	GetByEmail(ctx context.Context, email string) (*Member, *Credential, error)
}
