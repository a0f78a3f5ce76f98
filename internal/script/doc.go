// Package script embeds a Lua engine so users can add options
// resolvers for refactoring kinds without touching Go.
//
// A script registers resolvers through the refract module:
//
//	refract.resolver("RENAME", function(fb)
//	    local name = refract.prompt("New name", fb.oldName)
//	    if name == nil then return nil end
//	    return { newName = name }
//	end)
//
// The resolver's argument is the server's validation feedback as a
// table; the returned table becomes the options payload for the edit
// request. Returning nil cancels the refactoring silently, same as a
// dismissed prompt.
//
// Scripts run with a restricted stdlib (base, table, string, math) and
// no filesystem or process access.
package script
