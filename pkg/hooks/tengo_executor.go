package hooks

import (
	"fmt"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
)

// TengoExecutor handles the execution of Tengo scripts.
type TengoExecutor struct {
	scripts map[HookType]string
	mutex   sync.RWMutex
}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		scripts: make(map[HookType]string),
	}
}

// Execute runs the script registered for hookType. Scripts see the
// transaction through the builtin "transaction" module and may abort by
// assigning a non-empty string or error to the global err.
func (e *TengoExecutor) Execute(hookType HookType, ctx HookContext) error {
	e.mutex.RLock()
	script, exists := e.scripts[hookType]
	e.mutex.RUnlock()
	if !exists {
		return nil
	}

	logger.Debug("Executing transaction hook", logger.Fields{
		"hook":        string(hookType),
		"transaction": ctx.TransactionID,
		"items":       len(ctx.Entries),
	})

	moduleMap := stdlib.GetModuleMap("fmt", "json", "os", "text", "times")
	moduleMap.AddBuiltinModule("transaction", transactionModule(ctx))

	s := tengo.NewScript([]byte(script))
	s.SetImports(moduleMap)
	for k, v := range ctx.Vars {
		if err := s.Add(k, v); err != nil {
			return fmt.Errorf("failed to add variable '%s' to script: %w", k, err)
		}
	}

	compiled, err := s.Run()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", hookType, errors.ErrHookExecution, err)
	}

	errVar := compiled.Get("err")
	if errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return fmt.Errorf("%s: %w: %w", hookType, errors.ErrHookScript, v)
		case string:
			if v != "" {
				return fmt.Errorf("%s: %w: %s", hookType, errors.ErrHookScript, v)
			}
		}
	}
	return nil
}

func transactionModule(ctx HookContext) map[string]tengo.Object {
	entries := make([]tengo.Object, 0, len(ctx.Entries))
	for _, en := range ctx.Entries {
		obs := make([]tengo.Object, 0, len(en.Obsoleted))
		for _, o := range en.Obsoleted {
			obs = append(obs, &tengo.String{Value: o})
		}
		entries = append(entries, &tengo.ImmutableMap{Value: map[string]tengo.Object{
			"op":        &tengo.String{Value: en.Op},
			"installed": &tengo.String{Value: en.Installed},
			"erased":    &tengo.String{Value: en.Erased},
			"obsoleted": &tengo.ImmutableArray{Value: obs},
		}})
	}
	return map[string]tengo.Object{
		"id":          &tengo.String{Value: ctx.TransactionID},
		"root_dir":    &tengo.String{Value: ctx.RootDir},
		"return_code": &tengo.Int{Value: int64(ctx.ReturnCode)},
		"items":       &tengo.ImmutableArray{Value: entries},
	}
}

// AddScript adds or updates a script for the specified hooks type.
func (e *TengoExecutor) AddScript(hookType HookType, script string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[hookType] = script
}

// RemoveScript removes the script for the specified hooks type.
func (e *TengoExecutor) RemoveScript(hookType HookType) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.scripts, hookType)
}

// HasScript checks if a script exists for the specified hooks type.
func (e *TengoExecutor) HasScript(hookType HookType) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, exists := e.scripts[hookType]
	return exists
}
