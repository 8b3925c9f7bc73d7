package railway

import (
	"errors"

	"github.com/foxhollow/trackvault/internal/types"
)

// Client errors for the domain layer, mirrored in spirit on the storage
// core's own (ErrDuplicateKey/ErrNotFound/...): expected conditions the
// caller branches on.
var (
	ErrUserExists       = errors.New("railway: username already registered")
	ErrUserNotFound     = errors.New("railway: no such user")
	ErrBadCredentials   = errors.New("railway: bad username or password")
	ErrNotLoggedIn      = errors.New("railway: user is not logged in")
	ErrAlreadyLoggedIn  = errors.New("railway: user already logged in")
	ErrUnauthorized     = errors.New("railway: insufficient privilege")
	ErrInvalidArgument  = errors.New("railway: invalid argument")
)

// AddUser registers a new account. The very first user ever registered is
// auto-privileged as the bootstrap admin; every subsequent registration
// requires an authenticated caller whose own privilege is at least the
// new account's requested privilege.
func (e *Engine) AddUser(callerHash uint64, callerLoggedIn bool, username, password, name, mail string, privilege int32) error {
	hash := StringHash(username)
	if _, exists := e.users.Get(hash); exists {
		return ErrUserExists
	}

	bootstrapping := e.users.Len() == 0
	if !bootstrapping {
		if !callerLoggedIn {
			return ErrNotLoggedIn
		}
		caller, ok := e.users.Get(callerHash)
		if !ok {
			return ErrUserNotFound
		}
		if caller.Privilege < privilege {
			return ErrUnauthorized
		}
	} else {
		privilege = 10
	}

	rec := UserRecord{
		Username:  types.NewUsername(username),
		Password:  types.NewPassword(password),
		Name:      types.NewName(name),
		Mail:      types.NewMailAddr(mail),
		Privilege: privilege,
	}
	return e.users.Put(hash, rec)
}

// Login authenticates username/password and marks it logged in, returning
// its hash for use by other operations that need a caller identity.
func (e *Engine) Login(username, password string) (uint64, error) {
	hash := StringHash(username)
	rec, ok := e.users.Get(hash)
	if !ok || rec.Password.String() != password {
		return 0, ErrBadCredentials
	}
	if _, logged := e.loginUsers[hash]; logged {
		return 0, ErrAlreadyLoggedIn
	}
	e.loginUsers[hash] = struct{}{}
	return hash, nil
}

// Logout clears a user's logged-in session.
func (e *Engine) Logout(userHash uint64) error {
	if _, ok := e.loginUsers[userHash]; !ok {
		return ErrNotLoggedIn
	}
	delete(e.loginUsers, userHash)
	return nil
}

// QueryProfile returns username's full record, requiring the caller to be
// logged in with privilege >= the target's (or be the target).
func (e *Engine) QueryProfile(callerHash uint64, username string) (UserRecord, error) {
	if _, ok := e.loginUsers[callerHash]; !ok {
		return UserRecord{}, ErrNotLoggedIn
	}
	targetHash := StringHash(username)
	target, ok := e.users.Get(targetHash)
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	if targetHash == callerHash {
		return target, nil
	}
	caller, ok := e.users.Get(callerHash)
	if !ok || caller.Privilege < target.Privilege {
		return UserRecord{}, ErrUnauthorized
	}
	return target, nil
}

// ModifyProfile updates zero or more fields of username's profile. Unlike
// QueryProfile, a caller editing another user needs a privilege strictly
// above the target's, and may only set a privilege below its own. A nil
// pointer field means "leave unchanged".
func (e *Engine) ModifyProfile(callerHash uint64, username string, password, name, mail *string, privilege *int32) (UserRecord, error) {
	if _, ok := e.loginUsers[callerHash]; !ok {
		return UserRecord{}, ErrNotLoggedIn
	}
	targetHash := StringHash(username)
	target, ok := e.users.Get(targetHash)
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	caller, ok := e.users.Get(callerHash)
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	if targetHash != callerHash && caller.Privilege <= target.Privilege {
		return UserRecord{}, ErrUnauthorized
	}
	if privilege != nil && *privilege >= caller.Privilege && targetHash != callerHash {
		return UserRecord{}, ErrUnauthorized
	}

	if password != nil {
		target.Password = types.NewPassword(*password)
	}
	if name != nil {
		target.Name = types.NewName(*name)
	}
	if mail != nil {
		target.Mail = types.NewMailAddr(*mail)
	}
	if privilege != nil {
		target.Privilege = *privilege
	}
	if err := e.users.Put(targetHash, target); err != nil {
		return UserRecord{}, err
	}
	return target, nil
}
